// Package metric provides Prometheus-based metrics collection and an HTTP
// server for monitoring replay sampling clients.
//
// The package offers a centralized metrics registry managing both
// client-wide metrics (request accounting, NATS transport health) and
// per-stream metrics registered by individual streams. It includes an HTTP
// server exposing metrics in Prometheus format.
//
// # Architecture
//
// The package follows a three-layer design:
//
//  1. Core Metrics: client-wide metrics automatically registered (Metrics type)
//  2. Stream Registry: extensible registration for per-stream metrics (MetricsRegistrar interface)
//  3. HTTP Server: metrics endpoint with a health check (Server type)
//
// # Basic Usage
//
// Setting up metrics collection and the HTTP server:
//
//	registry := metric.NewMetricsRegistry()
//	server := metric.NewServer(9090, "/metrics", registry)
//
//	go func() {
//	    if err := server.Start(); err != nil {
//	        log.Printf("metrics server error: %v", err)
//	    }
//	}()
//
//	coreMetrics := registry.CoreMetrics()
//	coreMetrics.RecordNATSStatus(true)
//	coreMetrics.RecordRequest("sample", "ok")
//
// The server exposes Prometheus-formatted metrics at
// http://localhost:9090/metrics and a health check at
// http://localhost:9090/health.
//
// Streams register their own counters, gauges and histograms through the
// same registry, namespaced per table, so one endpoint serves the whole
// client. Passing a nil registry to a stream disables its metrics without
// any further configuration.
package metric
