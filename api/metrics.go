package api

import (
	"strconv"

	fiber "github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "netagent_http_requests_total",
	Help: "HTTP requests served by the API, by route and status code.",
}, []string{"method", "route", "code"})

func requestMetrics() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if e, ok := err.(*fiber.Error); ok {
				status = e.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		httpRequests.WithLabelValues(c.Method(), c.Route().Path, strconv.Itoa(status)).Inc()
		return err
	}
}
