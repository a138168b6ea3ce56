package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ImportRecordsTotal counts bulk-import records by entity (course, question) and outcome (created, failed)
	ImportRecordsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_import_records_total",
			Help: "Total number of bulk import records processed",
		},
		[]string{"entity", "outcome"},
	)

	ImportBatchSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "archive_import_batch_size",
			Help:    "Number of records per bulk import request",
			Buckets: prometheus.ExponentialBuckets(1, 4, 6),
		},
		[]string{"entity"},
	)

	SearchResultsTotal = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "archive_search_results",
			Help:    "Number of results returned per search",
			Buckets: prometheus.LinearBuckets(0, 10, 6),
		},
		[]string{"kind"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)
)

// RequestDuration records APIRequestDuration labelled by the matched route pattern
func RequestDuration() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		APIRequestDuration.
			WithLabelValues(c.Route().Path, c.Method(), strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
		return err
	}
}
