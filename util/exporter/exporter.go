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
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cubefs/xkfs/util/config"
	"github.com/cubefs/xkfs/util/log"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	PromHandlerPattern      = "/metrics"       // prometheus handler
	AppName                 = "xkfs"           // app name
	ConfigKeyExporterEnable = "exporterEnable" // exporter enable
	ConfigKeyExporterPort   = "exporterPort"   // exporter port
)

var (
	registry     = prometheus.NewRegistry()
	replacer     = strings.NewReplacer("-", "_", ".", "_", " ", "_", ",", "_", ":", "_")
	exporterPort int64
	server       *http.Server
	serverMu     sync.Mutex
)

func metricsName(name string) string {
	return replacer.Replace(fmt.Sprintf("%s_%s", AppName, name))
}

// NewRouter returns a router serving the metrics handler.
func NewRouter() *mux.Router {
	router := mux.NewRouter()
	router.NewRoute().Name("metrics").
		Methods(http.MethodGet).
		Path(PromHandlerPattern).
		Handler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{
			Timeout: 5 * time.Second,
		}))
	return router
}

// Init starts the metrics endpoint when the config enables it. Metrics are
// always collected; only serving is optional.
func Init(role string, cfg *config.Config) {
	if !cfg.GetBoolWithDefault(ConfigKeyExporterEnable, true) {
		log.LogInfof("%v exporter disabled", role)
		return
	}
	port := cfg.GetInt64(ConfigKeyExporterPort)
	if port == 0 {
		log.LogInfof("%v exporter port not set", role)
		return
	}

	serverMu.Lock()
	defer serverMu.Unlock()
	if server != nil {
		return
	}
	exporterPort = port
	server = &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: NewRouter()}
	go func(s *http.Server) {
		if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogErrorf("exporter http serve error: %v", err)
		}
	}(server)

	NewGauge("start_time").Set(time.Now().Unix() * 1000)
	log.LogInfof("exporter [role: %v, exporterPort: %v] inited.", role, exporterPort)
}

func Stop() {
	serverMu.Lock()
	defer serverMu.Unlock()
	if server == nil {
		return
	}
	server.Shutdown(context.Background())
	server = nil
}
