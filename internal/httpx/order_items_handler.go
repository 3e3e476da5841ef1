package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"storefront-backend/internal/orders"
)

type OrderItemsHandler struct {
	Store orders.OrderStore
}

func (h *OrderItemsHandler) Register(r chi.Router) {
	r.Post("/order-item", h.addItem)
	r.Get("/order-item/{id}", h.getItem)
	r.Put("/order-item/{id}", h.updateItem)
	r.Delete("/order-item/{id}", h.deleteItem)
}

func (h *OrderItemsHandler) getItem(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, &orders.UnauthorizedError{})
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, &orders.ValidationError{Msg: "invalid order item id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	item, parent, err := h.Store.GetItem(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !p.IsAdmin() && p.ID != parent.UserID {
		writeError(w, &orders.ForbiddenError{})
		return
	}
	writeJSON(w, http.StatusOK, item)
}

type addItemReq struct {
	OrderID   int64 `json:"orderId"`
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

func (h *OrderItemsHandler) addItem(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, &orders.UnauthorizedError{})
		return
	}
	var req addItemReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &orders.ValidationError{Msg: "invalid json"})
		return
	}
	if req.OrderID == 0 || req.ProductID == 0 || req.Quantity == 0 {
		writeError(w, &orders.ValidationError{Msg: "orderId, productId and quantity are required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	parent, err := h.Store.GetOrder(ctx, req.OrderID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !p.IsAdmin() && p.ID != parent.UserID {
		writeError(w, &orders.ForbiddenError{})
		return
	}

	item, err := h.Store.AddItem(ctx, req.OrderID, req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *OrderItemsHandler) updateItem(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, &orders.UnauthorizedError{})
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, &orders.ValidationError{Msg: "invalid order item id"})
		return
	}
	var body struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, &orders.ValidationError{Msg: "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	_, parent, err := h.Store.GetItem(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !p.IsAdmin() && p.ID != parent.UserID {
		writeError(w, &orders.ForbiddenError{})
		return
	}

	item, err := h.Store.UpdateItemQuantity(ctx, id, body.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *OrderItemsHandler) deleteItem(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		writeError(w, &orders.UnauthorizedError{})
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, &orders.ValidationError{Msg: "invalid order item id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	_, parent, err := h.Store.GetItem(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !p.IsAdmin() && p.ID != parent.UserID {
		writeError(w, &orders.ForbiddenError{})
		return
	}
	if err := h.Store.DeleteItem(ctx, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "order item removed"})
}
