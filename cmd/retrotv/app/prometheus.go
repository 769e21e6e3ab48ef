// Copyright 2025, the RetroTV project. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE.md file.

package app

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	defaultBuckets = []float64{5, 10, 20, 50, 100, 200, 500, 1000}
	prometheusMW   prometheusMiddleware
)

const (
	nextReqsName      = "next_video_requests_total"
	nextLatencyName   = "next_video_request_duration_milliseconds"
	playedReqsName    = "played_requests_total"
	playedLatencyName = "played_request_duration_milliseconds"
	service           = "retrotv"
)

// prometheusMiddleware provides a handler that exposes prometheus metrics for the hot-path requests
type prometheusMiddleware struct {
	nextReqs      *prometheus.CounterVec
	nextLatency   *prometheus.HistogramVec
	playedReqs    *prometheus.CounterVec
	playedLatency *prometheus.HistogramVec
}

func init() {
	prometheusMW.nextReqs = newCounter(nextReqsName,
		"Number next_video requests processed, partitioned by status code.", service)
	prometheusMW.nextLatency = newHistogram(nextLatencyName,
		"next_video response latency.", service, defaultBuckets)
	prometheusMW.playedReqs = newCounter(playedReqsName,
		"Number played confirmations processed, partitioned by status code.", service)
	prometheusMW.playedLatency = newHistogram(playedLatencyName,
		"played response latency.", service, defaultBuckets)
}

// NewPrometheusMiddleware returns a new prometheus Middleware handler.
func NewPrometheusMiddleware() func(next http.Handler) http.Handler {
	return prometheusMW.handler
}

func (mw prometheusMiddleware) handler(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := strconv.Itoa(ww.Status())
		latencyMS := float64(time.Since(start).Nanoseconds()) * 1e-6

		switch path {
		case "/api/next_video":
			mw.nextReqs.WithLabelValues(status).Inc()
			mw.nextLatency.WithLabelValues(status).Observe(latencyMS)
		case "/api/played":
			mw.playedReqs.WithLabelValues(status).Inc()
			mw.playedLatency.WithLabelValues(status).Observe(latencyMS)
		}
	}
	return http.HandlerFunc(fn)
}

func newCounter(counterName, help, serviceName string) *prometheus.CounterVec {
	cv := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        counterName,
			Help:        help,
			ConstLabels: prometheus.Labels{"service": serviceName},
		},
		[]string{"code"},
	)
	prometheus.MustRegister(cv)
	return cv
}

func newHistogram(histogramName, help, serviceName string, buckets []float64) *prometheus.HistogramVec {
	h := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        histogramName,
		Help:        help,
		ConstLabels: prometheus.Labels{"service": serviceName},
		Buckets:     buckets,
	},
		[]string{"code"},
	)
	prometheus.MustRegister(h)
	return h
}
