package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rudrakv/storefront-api/internal/apperr"
	"github.com/rudrakv/storefront-api/internal/checkout"
	"github.com/rudrakv/storefront-api/internal/metrics"
	"github.com/rudrakv/storefront-api/internal/model"
	"github.com/rudrakv/storefront-api/internal/queue"
	"github.com/rudrakv/storefront-api/internal/repository"
	queue_publisher "github.com/rudrakv/storefront-api/internal/service"
)

// OrderHandler drives the order-placement pipeline: validation
// against the live catalog, address reconciliation, the atomic
// commit, and the read/status surface on committed orders.
type OrderHandler struct {
	Validator *checkout.Validator
	Committer *checkout.Committer
	Orders    *repository.OrderRepo
	Addresses *repository.AddressRepo
}

func NewOrderHandler(validator *checkout.Validator, committer *checkout.Committer, orders *repository.OrderRepo, addresses *repository.AddressRepo) *OrderHandler {
	if validator == nil || committer == nil || orders == nil || addresses == nil {
		panic("nil dependency passed to NewOrderHandler")
	}
	return &OrderHandler{Validator: validator, Committer: committer, Orders: orders, Addresses: addresses}
}

type orderResp struct {
	OrderID       string          `json:"order_id"`
	Status        string          `json:"status"`
	TotalPaise    int64           `json:"total_paise"`
	Currency      string          `json:"currency"`
	Items         json.RawMessage `json:"items"`
	CustomerName  string          `json:"customer_name"`
	AddressText   string          `json:"address_text"`
	DeliverySlot  string          `json:"delivery_slot,omitempty"`
	PaymentMethod string          `json:"payment_method"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func toOrderResp(o model.Order) orderResp {
	return orderResp{
		OrderID:       o.ID,
		Status:        o.Status,
		TotalPaise:    o.TotalPaise,
		Currency:      o.Currency,
		Items:         json.RawMessage(o.ItemsJSON),
		CustomerName:  o.CustomerName,
		AddressText:   o.AddressText,
		DeliverySlot:  o.DeliverySlot,
		PaymentMethod: o.PaymentMethod,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

// Place handles POST /v1/orders. The request is re-priced against
// the catalog, the delivery address is reconciled into a staged
// write set, and everything is committed as one batch. Address
// staging failures degrade to an unlinked order; nothing else is
// allowed to partially succeed.
func (h *OrderHandler) Place(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondErr(c, apperr.New(apperr.KindUnauthenticated, "unauthorized"))
	}
	var req checkout.Request
	if err := c.Bind(&req); err != nil {
		return respondErr(c, apperr.New(apperr.KindValidation, "invalid body"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	sum, err := h.Validator.Validate(ctx, req)
	if err != nil {
		metrics.OrderRejections.WithLabelValues(string(apperr.KindOf(err))).Inc()
		return respondErr(c, err)
	}

	plan := checkout.ReconcileAddress(ctx, h.Addresses, uid, sum, req.MakeDefault)

	order, err := h.Committer.Commit(ctx, uid, sum, plan)
	if err != nil {
		metrics.OrderRejections.WithLabelValues(string(apperr.KindOf(err))).Inc()
		return respondErr(c, err)
	}

	metrics.OrdersPlaced.Inc()
	metrics.AmountPlacedPaise.Add(float64(order.TotalPaise))

	// Fire-and-forget: a broker outage must never fail a committed order.
	go func(ev queue.OrderPlacedEvent) {
		pubCtx, pubCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer pubCancel()
		_ = queue_publisher.PublishOrderPlaced(pubCtx, ev)
	}(queue.OrderPlacedEvent{
		OrderID:       order.ID,
		UserID:        uid,
		TotalPaise:    order.TotalPaise,
		Currency:      order.Currency,
		ItemCount:     len(sum.Lines),
		PaymentMethod: order.PaymentMethod,
		City:          sum.City,
		PlacedAt:      order.CreatedAt.Format(time.RFC3339),
	})

	return c.JSON(http.StatusCreated, toOrderResp(order))
}

// Get handles GET /v1/orders/:id. Admin and rider principals may
// read any order; customers only their own. Absent and not-owned
// orders produce the identical not-found response so order ids
// cannot be probed for existence.
func (h *OrderHandler) Get(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondErr(c, apperr.New(apperr.KindUnauthenticated, "unauthorized"))
	}
	id := c.Param("id")
	if id == "" {
		return respondErr(c, apperr.New(apperr.KindValidation, "invalid order id"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	o, err := h.Orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return respondErr(c, apperr.New(apperr.KindNotFound, "order not found"))
		}
		return respondErr(c, apperr.Wrap(apperr.KindStorage, "could not load order", err))
	}
	role := getRole(c)
	if role != model.RoleAdmin && role != model.RoleRider {
		if o.UserID == nil || *o.UserID != uid {
			return respondErr(c, apperr.New(apperr.KindNotFound, "order not found"))
		}
	}
	return c.JSON(http.StatusOK, toOrderResp(o))
}

// ListMine handles GET /v1/orders, returning the caller's orders
// newest first.
func (h *OrderHandler) ListMine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondErr(c, apperr.New(apperr.KindUnauthenticated, "unauthorized"))
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	orders, err := h.Orders.ListByUser(ctx, uid)
	if err != nil {
		return respondErr(c, apperr.Wrap(apperr.KindStorage, "could not load orders", err))
	}
	out := make([]orderResp, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResp(o))
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": out})
}

type statusReq struct {
	Status string `json:"status"`
}

// UpdateStatus handles PATCH /v1/orders/:id/status, restricted to
// admin and rider roles by the router. Any named status may move to
// any other; only the status-name allowlist is enforced, and
// updated_at is always stamped.
func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return respondErr(c, apperr.New(apperr.KindValidation, "invalid order id"))
	}
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return respondErr(c, apperr.New(apperr.KindValidation, "invalid body"))
	}
	if !model.IsValidOrderStatus(req.Status) {
		return respondErr(c, apperr.New(apperr.KindValidation, "unknown order status"))
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	found, err := h.Orders.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		return respondErr(c, apperr.Wrap(apperr.KindStorage, "could not update order", err))
	}
	if !found {
		return respondErr(c, apperr.New(apperr.KindNotFound, "order not found"))
	}
	return c.JSON(http.StatusOK, echo.Map{"order_id": id, "status": req.Status})
}
