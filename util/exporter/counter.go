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

var CounterGroup sync.Map

type Counter struct {
	name   string
	metric prometheus.Counter
}

// NewCounter returns the counter registered under name, registering it on
// first use.
func NewCounter(name string) (c *Counter) {
	c = &Counter{name: metricsName(name)}
	c.metric = c.Metric()
	return
}

func (c *Counter) Add(val int64) {
	c.metric.Add(float64(val))
}

func (c *Counter) Metric() prometheus.Counter {
	metric := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: c.name,
		})
	actualMetric, load := CounterGroup.LoadOrStore(c.name, metric)
	if !load {
		if err := registry.Register(actualMetric.(prometheus.Collector)); err == nil {
			log.LogInfo("register metric ", c.name)
		}
	}
	return actualMetric.(prometheus.Counter)
}
