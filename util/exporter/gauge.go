// Copyright 2023 The CubeFS Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package exporter

import (
	"sync"

	"github.com/cubefs/xkfs/util/log"
	"github.com/prometheus/client_golang/prometheus"
)

var GaugeGroup sync.Map

type Gauge struct {
	name   string
	metric prometheus.Gauge
}

func NewGauge(name string) (g *Gauge) {
	g = &Gauge{name: metricsName(name)}
	g.metric = g.Metric()
	return
}

func (g *Gauge) Metric() prometheus.Gauge {
	metric := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: g.name,
		})
	actualMetric, load := GaugeGroup.LoadOrStore(g.name, metric)
	if !load {
		if err := registry.Register(actualMetric.(prometheus.Collector)); err == nil {
			log.LogInfo("register metric ", g.name)
		}
	}
	return actualMetric.(prometheus.Gauge)
}

func (g *Gauge) Set(val int64) {
	g.metric.Set(float64(val))
}

func (g *Gauge) Add(val int64) {
	g.metric.Add(float64(val))
}
