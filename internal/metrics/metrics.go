// Package metrics registers the process-wide Prometheus collectors.
// Everything is registered on the default registry and exposed on
// /metrics by the router.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrdersPlaced counts successfully committed orders.
	OrdersPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_orders_placed_total",
		Help: "Number of orders committed successfully.",
	})

	// OrderRejections counts checkout attempts rejected before or
	// during commit, labelled by error category.
	OrderRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_order_rejections_total",
		Help: "Number of checkout attempts rejected, by error kind.",
	}, []string{"kind"})

	// AmountPlacedPaise accumulates the total value of committed
	// orders in paise.
	AmountPlacedPaise = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_order_amount_paise_total",
		Help: "Cumulative committed order value in paise.",
	})

	// AuthRejections counts requests turned away by the session
	// validator. The reason label is the fixed set of rejection
	// messages the validator emits.
	AuthRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_auth_rejections_total",
		Help: "Number of requests rejected by session validation, by reason.",
	}, []string{"reason"})
)
