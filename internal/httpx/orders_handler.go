package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "storefront-backend/internal/kafka"
	"storefront-backend/internal/orders"
	"storefront-backend/internal/redisx"
)

type OrdersHandler struct {
	Store orders.OrderStore

	// Optional collaborators; nil disables caching / event publication.
	Redis           *redis.Client
	ProducerCreated *kafkax.Producer
	ProducerStatus  *kafkax.Producer
	Service         string
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/order", h.createOrder)
	r.Get("/order/{id}", h.getOrder)
	r.Get("/order/user/{userId}", h.listUserOrders)
	r.Put("/order/{id}", h.updateStatus)
	r.Delete("/order/{id}", h.deleteOrder)
}

type createOrderReq struct {
	Items       []orders.ItemInput `json:"items"`
	TotalAmount *float64           `json:"totalAmount"`
}

func (h *OrdersHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, &orders.UnauthorizedError{})
		return
	}

	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &orders.ValidationError{Msg: "invalid json"})
		return
	}
	if len(req.Items) == 0 || req.TotalAmount == nil {
		writeError(w, &orders.ValidationError{Msg: "items and totalAmount are required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Store.CreateOrder(ctx, p.ID, *req.TotalAmount, req.Items)
	if err != nil {
		writeError(w, err)
		return
	}

	h.cacheOrder(ctx, o)
	h.publish(h.ProducerCreated, orders.EventOrderCreated, o.ID, r.Header.Get("X-Request-Id"),
		orders.OrderCreatedPayload{
			OrderID:     o.ID,
			UserID:      o.UserID,
			TotalAmount: o.TotalAmount,
			Items:       o.Items,
		})

	writeJSON(w, http.StatusCreated, map[string]any{"order": o, "orderItems": o.Items})
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, &orders.UnauthorizedError{})
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, &orders.ValidationError{Msg: "invalid order id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if o := h.cachedOrder(ctx, id); o != nil {
		if !p.IsAdmin() && p.ID != o.UserID {
			writeError(w, &orders.ForbiddenError{})
			return
		}
		writeJSON(w, http.StatusOK, o)
		return
	}

	o, err := h.Store.GetOrder(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !p.IsAdmin() && p.ID != o.UserID {
		writeError(w, &orders.ForbiddenError{})
		return
	}
	h.cacheOrder(ctx, o)
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) listUserOrders(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, &orders.UnauthorizedError{})
		return
	}
	userID, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil {
		writeError(w, &orders.ValidationError{Msg: "invalid user id"})
		return
	}
	// Strictly self; admins use GET /order/{id}.
	if p.ID != userID {
		writeError(w, &orders.ForbiddenError{})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.Store.ListByUser(ctx, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if out == nil {
		out = []orders.Order{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, &orders.UnauthorizedError{})
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, &orders.ValidationError{Msg: "invalid order id"})
		return
	}
	var body struct {
		Status orders.Status `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, &orders.ValidationError{Msg: "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Store.GetOrder(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := orders.CheckTransition(p, o.UserID, o.Status, body.Status); err != nil {
		writeError(w, err)
		return
	}

	updated, err := h.Store.UpdateStatus(ctx, id, body.Status)
	if err != nil {
		writeError(w, err)
		return
	}

	h.dropCache(ctx, id, o.UserID)
	h.publish(h.ProducerStatus, orders.EventOrderStatusChanged, id, r.Header.Get("X-Request-Id"),
		orders.OrderStatusChangedPayload{OrderID: id, From: o.Status, To: updated.Status})

	writeJSON(w, http.StatusOK, updated)
}

func (h *OrdersHandler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, &orders.UnauthorizedError{})
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, &orders.ValidationError{Msg: "invalid order id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Store.GetOrder(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !p.IsAdmin() && p.ID != o.UserID {
		writeError(w, &orders.ForbiddenError{})
		return
	}
	if err := h.Store.DeleteOrder(ctx, id); err != nil {
		writeError(w, err)
		return
	}
	h.dropCache(ctx, id, o.UserID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "order deleted"})
}

func (h *OrdersHandler) cacheOrder(ctx context.Context, o *orders.Order) {
	if h.Redis == nil {
		return
	}
	b, err := json.Marshal(o)
	if err != nil {
		return
	}
	_ = h.Redis.Set(ctx, fmt.Sprintf(redisx.KeyOrder, o.ID), b, redisx.TTLOrder).Err()
}

func (h *OrdersHandler) cachedOrder(ctx context.Context, id int64) *orders.Order {
	if h.Redis == nil {
		return nil
	}
	s, err := h.Redis.Get(ctx, fmt.Sprintf(redisx.KeyOrder, id)).Result()
	if err != nil || s == "" {
		return nil
	}
	var o orders.Order
	if err := json.Unmarshal([]byte(s), &o); err != nil {
		return nil
	}
	return &o
}

func (h *OrdersHandler) dropCache(ctx context.Context, id, userID int64) {
	if h.Redis == nil {
		return
	}
	_ = h.Redis.Del(ctx,
		fmt.Sprintf(redisx.KeyOrder, id),
		fmt.Sprintf(redisx.KeyUserOrders, userID),
	).Err()
}

func (h *OrdersHandler) publish(p *kafkax.Producer, eventType string, orderID int64, trace string, payload any) {
	if p == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       trace,
		CorrelationID: strconv.FormatInt(orderID, 10),
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
