package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/mkshitij1763/e-commerce-api/internal/auth"
	"github.com/mkshitij1763/e-commerce-api/internal/checkout"
	"github.com/mkshitij1763/e-commerce-api/internal/events"
	kafkax "github.com/mkshitij1763/e-commerce-api/internal/kafka"
	"github.com/mkshitij1763/e-commerce-api/internal/order"
	"github.com/mkshitij1763/e-commerce-api/internal/redisx"
)

type OrdersHandler struct {
	Engine *checkout.Engine
	Orders *order.Service
	Redis  *redis.Client

	Placed   *kafkax.Producer
	Paid     *kafkax.Producer
	Statuses *kafkax.Producer

	Service string
	Log     *zap.Logger
}

type payReq struct {
	PaymentRef string `json:"paymentRef"`
}

type statusReq struct {
	Status string `json:"status"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/checkout", h.checkout)
	r.Get("/orders", h.listMyOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Post("/orders/{id}/pay", h.payOrder)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAdmin)
		r.Get("/orders/all", h.listAllOrders)
		r.Patch("/orders/{id}/status", h.updateStatus)
	})
}

func (h *OrdersHandler) checkout(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Engine.Checkout(ctx, p.ID)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	h.cacheOrder(ctx, o)
	h.publish(h.Placed, events.EventOrderPlaced, o.ID, r, events.OrderPlacedPayload{
		OrderID:    o.ID,
		UserID:     o.UserID,
		Items:      toSnapshots(o.Items),
		TotalCents: o.TotalCents,
	})

	writeJSON(w, http.StatusCreated, map[string]any{"message": "Order placed", "order": o})
}

func (h *OrdersHandler) listMyOrders(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	orders, err := h.Orders.ListForUser(ctx, p.ID)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if orders == nil {
		orders = []order.Order{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (h *OrdersHandler) listAllOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	orders, err := h.Orders.ListAll(ctx)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	if orders == nil {
		orders = []order.Order{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// Cache first; ownership still has to hold, so the cached order is
	// decoded before it is served.
	key := fmt.Sprintf(redisx.KeyOrder, orderID)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		var o order.Order
		if err := json.Unmarshal([]byte(s), &o); err == nil {
			if o.UserID != p.ID && !p.IsAdmin() {
				writeMessage(w, http.StatusForbidden, order.ErrForbidden.Error())
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"order": o})
			return
		}
	}

	o, err := h.Orders.Get(ctx, orderID, p)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	h.cacheOrder(ctx, o)
	writeJSON(w, http.StatusOK, map[string]any{"order": o})
}

func (h *OrdersHandler) payOrder(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "authentication required")
		return
	}
	orderID := chi.URLParam(r, "id")

	var req payReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Orders.RecordPayment(ctx, orderID, p, req.PaymentRef)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	h.cacheOrder(ctx, o)
	paidAt := time.Now().UTC()
	if o.PaidAt != nil {
		paidAt = *o.PaidAt
	}
	h.publish(h.Paid, events.EventOrderPaid, o.ID, r, events.OrderPaidPayload{
		OrderID:     o.ID,
		UserID:      o.UserID,
		PaymentRef:  o.PaymentRef,
		AmountCents: o.TotalCents,
		PaidAt:      paidAt,
	})

	writeJSON(w, http.StatusOK, map[string]any{"message": "Payment recorded", "order": o})
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	var req statusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Orders.UpdateStatus(ctx, orderID, req.Status)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	h.cacheOrder(ctx, o)
	h.publish(h.Statuses, events.EventOrderStatusChanged, o.ID, r, events.OrderStatusChangedPayload{
		OrderID: o.ID,
		Status:  string(o.Status),
	})

	writeJSON(w, http.StatusOK, map[string]any{"message": "Status updated", "order": o})
}

// cacheOrder refreshes the read cache. Failures are ignored; the database
// remains the source of truth.
func (h *OrdersHandler) cacheOrder(ctx context.Context, o *order.Order) {
	b, err := json.Marshal(o)
	if err != nil {
		return
	}
	_ = h.Redis.Set(ctx, fmt.Sprintf(redisx.KeyOrder, o.ID), b, redisx.TTLOrderCache).Err()
}

func (h *OrdersHandler) publish(p *kafkax.Producer, eventType, orderID string, r *http.Request, payload any) {
	if p == nil {
		return
	}
	ev := events.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(events.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func toSnapshots(items []order.Item) []events.ItemSnapshot {
	out := make([]events.ItemSnapshot, 0, len(items))
	for _, it := range items {
		out = append(out, events.ItemSnapshot{
			ProductID:  it.ProductID,
			Name:       it.Name,
			PriceCents: it.PriceCents,
			Qty:        it.Qty,
		})
	}
	return out
}
