package main

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	extractionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ocrtext_extractions_total",
		Help: "Extractions by mode, input kind and outcome",
	}, []string{"mode", "kind", "status"})

	extractionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ocrtext_extraction_duration_seconds",
		Help:    "Time spent extracting text from one upload",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	}, []string{"mode"})

	extractedPages = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ocrtext_pages_total",
		Help: "Pages processed by OCR",
	})

	skippedRegions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ocrtext_regions_skipped_total",
		Help: "Detected regions dropped because their box or text was unusable",
	})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ocrtext_http_requests_total",
		Help: "HTTP requests by route and status code",
	}, []string{"method", "route", "status"})
)

func modeLabel(handwritten bool) string {
	if handwritten {
		return "handwritten"
	}
	return "layout"
}

func observeExtraction(r *storedResult, status string, took time.Duration) {
	mode := modeLabel(r.Handwritten)
	kind := string(r.Kind)
	if kind == "" {
		kind = "unknown"
	}
	extractionsTotal.WithLabelValues(mode, kind, status).Inc()
	extractionDuration.WithLabelValues(mode).Observe(took.Seconds())
	extractedPages.Add(float64(len(r.Pages)))
	for _, p := range r.Pages {
		skippedRegions.Add(float64(p.Skipped))
	}
}

func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}
