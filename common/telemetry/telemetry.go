package telemetry

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/memofn/evalstore/common/config"
	"github.com/memofn/evalstore/common/logger"
)

// Telemetry holds observability components
type Telemetry struct {
	log           *logger.Logger
	pprofAddr     string
	metricsAddr   string
	enablePprof   bool
	enableMetrics bool

	// UploadsTotal counts verified blob uploads.
	UploadsTotal prometheus.Counter
	// UploadBytesTotal counts payload bytes accepted after verification.
	UploadBytesTotal prometheus.Counter
	// IntegrityFailures counts uploads rejected for hash or length
	// mismatch.
	IntegrityFailures prometheus.Counter
	// DownloadsTotal counts blob downloads served.
	DownloadsTotal prometheus.Counter
}

// New creates telemetry components
func New(cfg config.TelemetryConfig, log *logger.Logger) *Telemetry {
	return &Telemetry{
		log:           log,
		pprofAddr:     fmt.Sprintf("localhost:%d", cfg.PprofPort),
		metricsAddr:   fmt.Sprintf("localhost:%d", cfg.MetricsPort),
		enablePprof:   cfg.EnablePprof,
		enableMetrics: cfg.EnableMetrics,

		UploadsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "evalstore_blob_uploads_total",
			Help: "Verified blob uploads.",
		}),
		UploadBytesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "evalstore_blob_upload_bytes_total",
			Help: "Payload bytes accepted after hash verification.",
		}),
		IntegrityFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "evalstore_blob_integrity_failures_total",
			Help: "Uploads rejected for content hash or length mismatch.",
		}),
		DownloadsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "evalstore_blob_downloads_total",
			Help: "Blob downloads served.",
		}),
	}
}

// Start starts the enabled telemetry endpoints
func (t *Telemetry) Start(ctx context.Context) error {
	if t.enablePprof {
		go func() {
			t.log.Info("pprof server starting", "addr", t.pprofAddr)
			if err := http.ListenAndServe(t.pprofAddr, nil); err != nil {
				t.log.Error("pprof server error", "error", err)
			}
		}()
	}

	if t.enableMetrics {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			t.log.Info("metrics server starting", "addr", t.metricsAddr)
			if err := http.ListenAndServe(t.metricsAddr, mux); err != nil {
				t.log.Error("metrics server error", "error", err)
			}
		}()
	}

	return nil
}

// RecordDuration records operation duration
func (t *Telemetry) RecordDuration(operation string, start time.Time) {
	duration := time.Since(start)
	t.log.Debug("operation completed",
		"operation", operation,
		"duration_ms", duration.Milliseconds(),
	)
}
