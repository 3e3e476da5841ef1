package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-backend/internal/orders"
)

// fakeStore backs the handlers in-memory; only what the tests touch is wired.
type fakeStore struct {
	orders map[int64]*orders.Order

	createErr     error
	updateCalls   int
	deletedOrders []int64
}

func (f *fakeStore) CreateOrder(ctx context.Context, userID int64, totalAmount float64, items []orders.ItemInput) (*orders.Order, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	o := &orders.Order{ID: 1, UserID: userID, TotalAmount: totalAmount, Status: orders.StatusPending}
	for i, it := range items {
		o.Items = append(o.Items, orders.OrderItem{
			ID: int64(i + 1), OrderID: o.ID, ProductID: it.ProductID, Quantity: it.Quantity,
		})
	}
	return o, nil
}

func (f *fakeStore) CreateOrdersBatch(ctx context.Context, groups []orders.OrderGroup) (*orders.BatchResult, error) {
	return &orders.BatchResult{}, nil
}

func (f *fakeStore) GetOrder(ctx context.Context, id int64) (*orders.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, &orders.NotFoundError{Entity: "order"}
	}
	cp := *o
	return &cp, nil
}

func (f *fakeStore) ListByUser(ctx context.Context, userID int64) ([]orders.Order, error) {
	var out []orders.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateStatus(ctx context.Context, id int64, status orders.Status) (*orders.Order, error) {
	f.updateCalls++
	o, ok := f.orders[id]
	if !ok {
		return nil, &orders.NotFoundError{Entity: "order"}
	}
	o.Status = status
	cp := *o
	return &cp, nil
}

func (f *fakeStore) DeleteOrder(ctx context.Context, id int64) error {
	if _, ok := f.orders[id]; !ok {
		return &orders.NotFoundError{Entity: "order"}
	}
	delete(f.orders, id)
	f.deletedOrders = append(f.deletedOrders, id)
	return nil
}

func (f *fakeStore) GetItem(ctx context.Context, id int64) (*orders.OrderItem, *orders.Order, error) {
	for _, o := range f.orders {
		for _, it := range o.Items {
			if it.ID == id {
				item := it
				cp := *o
				return &item, &cp, nil
			}
		}
	}
	return nil, nil, &orders.NotFoundError{Entity: "order item"}
}

func (f *fakeStore) AddItem(ctx context.Context, orderID, productID int64, quantity int) (*orders.OrderItem, error) {
	return &orders.OrderItem{ID: 100, OrderID: orderID, ProductID: productID, Quantity: quantity}, nil
}

func (f *fakeStore) UpdateItemQuantity(ctx context.Context, id int64, quantity int) (*orders.OrderItem, error) {
	return &orders.OrderItem{ID: id, Quantity: quantity}, nil
}

func (f *fakeStore) DeleteItem(ctx context.Context, id int64) error { return nil }

var _ orders.OrderStore = (*fakeStore)(nil)

func testRouter(store orders.OrderStore, p orders.Principal) http.Handler {
	r := chi.NewRouter()
	r.Group(func(gr chi.Router) {
		gr.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(WithPrincipal(req.Context(), p)))
			})
		})
		(&OrdersHandler{Store: store}).Register(gr)
		(&OrderItemsHandler{Store: store}).Register(gr)
	})
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestCreateOrder(t *testing.T) {
	user := orders.Principal{ID: 1, Role: orders.RoleUser}

	t.Run("valid request creates order with items", func(t *testing.T) {
		h := testRouter(&fakeStore{}, user)
		w := doJSON(t, h, http.MethodPost, "/order",
			`{"items":[{"productId":10,"quantity":2}],"totalAmount":40}`)
		require.Equal(t, http.StatusCreated, w.Code)

		var resp struct {
			Order      orders.Order      `json:"order"`
			OrderItems []orders.OrderItem `json:"orderItems"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, int64(1), resp.Order.UserID)
		assert.Equal(t, orders.StatusPending, resp.Order.Status)
		require.Len(t, resp.OrderItems, 1)
		assert.Equal(t, int64(10), resp.OrderItems[0].ProductID)
		assert.Equal(t, 2, resp.OrderItems[0].Quantity)
	})

	t.Run("missing totalAmount is a 400", func(t *testing.T) {
		h := testRouter(&fakeStore{}, user)
		w := doJSON(t, h, http.MethodPost, "/order", `{"items":[{"productId":10,"quantity":2}]}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("empty items is a 400", func(t *testing.T) {
		h := testRouter(&fakeStore{}, user)
		w := doJSON(t, h, http.MethodPost, "/order", `{"items":[],"totalAmount":40}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("dangling product id is a 400 with the offending ids", func(t *testing.T) {
		store := &fakeStore{createErr: &orders.InvalidReferenceError{Field: "product", IDs: []int64{999}}}
		h := testRouter(store, user)
		w := doJSON(t, h, http.MethodPost, "/order",
			`{"items":[{"productId":999,"quantity":2}],"totalAmount":40}`)
		require.Equal(t, http.StatusBadRequest, w.Code)

		var resp struct {
			InvalidIDs []int64 `json:"invalidIds"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, []int64{999}, resp.InvalidIDs)
	})
}

func TestGetOrder(t *testing.T) {
	store := func() *fakeStore {
		return &fakeStore{orders: map[int64]*orders.Order{
			5: {ID: 5, UserID: 1, TotalAmount: 40, Status: orders.StatusPending},
		}}
	}

	t.Run("owner reads own order", func(t *testing.T) {
		h := testRouter(store(), orders.Principal{ID: 1, Role: orders.RoleUser})
		w := doJSON(t, h, http.MethodGet, "/order/5", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("admin reads any order", func(t *testing.T) {
		h := testRouter(store(), orders.Principal{ID: 42, Role: orders.RoleAdmin})
		w := doJSON(t, h, http.MethodGet, "/order/5", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("non-owner gets 403", func(t *testing.T) {
		h := testRouter(store(), orders.Principal{ID: 2, Role: orders.RoleUser})
		w := doJSON(t, h, http.MethodGet, "/order/5", "")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("missing order is 404", func(t *testing.T) {
		h := testRouter(store(), orders.Principal{ID: 1, Role: orders.RoleUser})
		w := doJSON(t, h, http.MethodGet, "/order/777", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestListUserOrders(t *testing.T) {
	store := &fakeStore{orders: map[int64]*orders.Order{
		5: {ID: 5, UserID: 1},
	}}

	t.Run("self listing is allowed", func(t *testing.T) {
		h := testRouter(store, orders.Principal{ID: 1, Role: orders.RoleUser})
		w := doJSON(t, h, http.MethodGet, "/order/user/1", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("other users are refused", func(t *testing.T) {
		h := testRouter(store, orders.Principal{ID: 2, Role: orders.RoleUser})
		w := doJSON(t, h, http.MethodGet, "/order/user/1", "")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestUpdateStatus(t *testing.T) {
	pendingOrder := func() *fakeStore {
		return &fakeStore{orders: map[int64]*orders.Order{
			5: {ID: 5, UserID: 1, Status: orders.StatusPending},
		}}
	}

	t.Run("owner completes pending order", func(t *testing.T) {
		store := pendingOrder()
		h := testRouter(store, orders.Principal{ID: 1, Role: orders.RoleUser})
		w := doJSON(t, h, http.MethodPut, "/order/5", `{"status":"completed"}`)
		require.Equal(t, http.StatusOK, w.Code)

		var o orders.Order
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &o))
		assert.Equal(t, orders.StatusCompleted, o.Status)
	})

	t.Run("non-owner is refused and nothing is written", func(t *testing.T) {
		store := pendingOrder()
		h := testRouter(store, orders.Principal{ID: 2, Role: orders.RoleUser})
		w := doJSON(t, h, http.MethodPut, "/order/5", `{"status":"cancelled"}`)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, 0, store.updateCalls)
		assert.Equal(t, orders.StatusPending, store.orders[5].Status)
	})

	t.Run("owner cannot reopen a completed order", func(t *testing.T) {
		store := &fakeStore{orders: map[int64]*orders.Order{
			5: {ID: 5, UserID: 1, Status: orders.StatusCompleted},
		}}
		h := testRouter(store, orders.Principal{ID: 1, Role: orders.RoleUser})
		w := doJSON(t, h, http.MethodPut, "/order/5", `{"status":"pending"}`)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, 0, store.updateCalls)
	})

	t.Run("unknown status token is a 400", func(t *testing.T) {
		store := pendingOrder()
		h := testRouter(store, orders.Principal{ID: 1, Role: orders.RoleUser})
		w := doJSON(t, h, http.MethodPut, "/order/5", `{"status":"canceled"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestDeleteOrder(t *testing.T) {
	t.Run("owner deletes own order", func(t *testing.T) {
		store := &fakeStore{orders: map[int64]*orders.Order{5: {ID: 5, UserID: 1}}}
		h := testRouter(store, orders.Principal{ID: 1, Role: orders.RoleUser})
		w := doJSON(t, h, http.MethodDelete, "/order/5", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []int64{5}, store.deletedOrders)
	})

	t.Run("stranger cannot delete", func(t *testing.T) {
		store := &fakeStore{orders: map[int64]*orders.Order{5: {ID: 5, UserID: 1}}}
		h := testRouter(store, orders.Principal{ID: 9, Role: orders.RoleUser})
		w := doJSON(t, h, http.MethodDelete, "/order/5", "")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Empty(t, store.deletedOrders)
	})
}

func TestOrderItemRoutes(t *testing.T) {
	store := func() *fakeStore {
		return &fakeStore{orders: map[int64]*orders.Order{
			5: {ID: 5, UserID: 1, Items: []orders.OrderItem{
				{ID: 33, OrderID: 5, ProductID: 10, Quantity: 2},
			}},
		}}
	}

	t.Run("owner reads item through parent order", func(t *testing.T) {
		h := testRouter(store(), orders.Principal{ID: 1, Role: orders.RoleUser})
		w := doJSON(t, h, http.MethodGet, "/order-item/33", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("non-owner is refused", func(t *testing.T) {
		h := testRouter(store(), orders.Principal{ID: 2, Role: orders.RoleUser})
		w := doJSON(t, h, http.MethodGet, "/order-item/33", "")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("owner adds item to own order", func(t *testing.T) {
		h := testRouter(store(), orders.Principal{ID: 1, Role: orders.RoleUser})
		w := doJSON(t, h, http.MethodPost, "/order-item",
			`{"orderId":5,"productId":11,"quantity":1}`)
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("add item requires all fields", func(t *testing.T) {
		h := testRouter(store(), orders.Principal{ID: 1, Role: orders.RoleUser})
		w := doJSON(t, h, http.MethodPost, "/order-item", `{"productId":11}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("owner updates quantity", func(t *testing.T) {
		h := testRouter(store(), orders.Principal{ID: 1, Role: orders.RoleUser})
		w := doJSON(t, h, http.MethodPut, "/order-item/33", `{"quantity":4}`)
		require.Equal(t, http.StatusOK, w.Code)

		var it orders.OrderItem
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &it))
		assert.Equal(t, 4, it.Quantity)
	})

	t.Run("owner removes item", func(t *testing.T) {
		h := testRouter(store(), orders.Principal{ID: 1, Role: orders.RoleUser})
		w := doJSON(t, h, http.MethodDelete, "/order-item/33", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
