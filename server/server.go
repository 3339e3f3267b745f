package server

import (
	"fmt"

	"github.com/RyanBlaney/sonido-wavelet/logging"
	"github.com/RyanBlaney/sonido-wavelet/pipeline"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options configures the router
type Options struct {
	CORSOrigins    []string
	MaxUploadBytes int64
	// Metrics records request metrics when set
	Metrics *Metrics
	// Gatherer backs GET /metrics; defaults to the global registry
	Gatherer prometheus.Gatherer
	Logger   logging.Logger
}

// NewRouter builds the gin engine serving the analysis API
func NewRouter(p *pipeline.Pipeline, opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = logging.WithFields(logging.Fields{"component": "http"})
	}
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := gin.New()
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		respondError(c, logger, fmt.Errorf("panic: %v", recovered))
	}))
	r.Use(requestID())
	r.Use(accessLog(logger))
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware())
	}
	if len(opts.CORSOrigins) > 0 {
		r.Use(corsMiddleware(opts.CORSOrigins))
	}
	r.Use(bodyLimit(opts.MaxUploadBytes))

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	health := &HealthHandler{Store: p.Store()}
	health.Register(r)

	analysis := &AnalysisHandler{Pipeline: p, Logger: logger}
	analysis.Register(r)

	export := &ExportHandler{Logger: logger}
	export.Register(r)

	return r
}
