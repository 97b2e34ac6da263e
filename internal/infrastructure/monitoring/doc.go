/*
Package monitoring provides Prometheus metrics for the device-session layer.

# Overview

Every Metrics instance owns its own registry, so several instances (one per
test, one per process) never collide. All recording methods are safe to call
on a nil *Metrics, which lets components treat metrics as optional.

# Series

  - devicesession_poll_rounds_total{device,status}
  - devicesession_poll_round_duration_seconds{device}
  - devicesession_probe_errors_total{device,probe}
  - devicesession_lifecycle_events_total{device,kind}
  - devicesession_sockets_cached{device}
  - devicesession_socket_opens_total{device,kind,status}
  - devicesession_log_records_total{device,outcome}
  - devicesession_sourcemap_misses_total{platform}
  - devicesession_http_requests_total{method,path,status}
  - devicesession_http_request_duration_seconds{method,path}
  - devicesession_stream_connections

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
*/
package monitoring
