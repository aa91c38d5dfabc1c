// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gin-gonic/gin"
)

var (
	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eventra_orders_created_total",
		Help: "Number of orders created through the public checkout",
	})

	SalesCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eventra_sales_completed_total",
		Help: "Number of completed point-of-sale transactions",
	})

	CapacityRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventra_capacity_rejections_total",
		Help: "Number of orders rejected for insufficient stock or capacity",
	}, []string{"reason"})

	WebhooksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventra_webhooks_processed_total",
		Help: "Number of payment gateway webhooks processed by outcome",
	}, []string{"outcome"})

	TicketsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eventra_tickets_issued_total",
		Help: "Number of e-tickets issued",
	})

	TicketsScanned = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventra_tickets_scanned_total",
		Help: "Number of ticket scan attempts by outcome",
	}, []string{"outcome"})

	DeliveryAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "eventra_delivery_attempts_total",
		Help: "Number of ticket delivery attempts by channel and outcome",
	}, []string{"channel", "outcome"})

	DeliveryRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eventra_delivery_retries_total",
		Help: "Number of delivery attempts scheduled for retry",
	})
)

// Handler exposes the default registry for scraping.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
