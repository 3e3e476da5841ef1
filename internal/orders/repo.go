package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OrderStore is the persistence surface the HTTP layer and the ingestion
// pipelines depend on.
type OrderStore interface {
	CreateOrder(ctx context.Context, userID int64, totalAmount float64, items []ItemInput) (*Order, error)
	CreateOrdersBatch(ctx context.Context, groups []OrderGroup) (*BatchResult, error)
	GetOrder(ctx context.Context, id int64) (*Order, error)
	ListByUser(ctx context.Context, userID int64) ([]Order, error)
	UpdateStatus(ctx context.Context, id int64, status Status) (*Order, error)
	DeleteOrder(ctx context.Context, id int64) error

	GetItem(ctx context.Context, id int64) (*OrderItem, *Order, error)
	AddItem(ctx context.Context, orderID, productID int64, quantity int) (*OrderItem, error)
	UpdateItemQuantity(ctx context.Context, id int64, quantity int) (*OrderItem, error)
	DeleteItem(ctx context.Context, id int64) error
}

type Repo struct{ DB *pgxpool.Pool }

var _ OrderStore = (*Repo)(nil)

// productsExist binds the referential validator's lookup to the current tx so
// the check and the writes see the same snapshot.
func productsExist(tx pgx.Tx) ExistsFunc {
	return func(ctx context.Context, ids []int64) (map[int64]struct{}, error) {
		rows, err := tx.Query(ctx, `SELECT id FROM products WHERE id = ANY($1)`, ids)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		out := make(map[int64]struct{}, len(ids))
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				return nil, err
			}
			out[id] = struct{}{}
		}
		return out, rows.Err()
	}
}

// CreateOrder persists one order and its items as a single atomic unit. Every
// productId is checked against the catalog in one batched lookup first; any
// dangling id aborts before a row is written.
func (r *Repo) CreateOrder(ctx context.Context, userID int64, totalAmount float64, items []ItemInput) (*Order, error) {
	if len(items) == 0 {
		return nil, &ValidationError{Msg: "at least one item is required"}
	}
	if totalAmount < 0 {
		return nil, &ValidationError{Msg: "totalAmount must not be negative"}
	}
	productIDs := make([]int64, 0, len(items))
	for _, it := range items {
		if it.Quantity < 1 {
			return nil, &ValidationError{Msg: fmt.Sprintf("quantity for product %d must be at least 1", it.ProductID)}
		}
		productIDs = append(productIDs, it.ProductID)
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, &TransactionError{Err: err}
	}
	defer func() { _ = tx.Rollback(ctx) }()

	part, err := ValidateRefs(ctx, productIDs, productsExist(tx))
	if err != nil {
		return nil, &TransactionError{Err: err}
	}
	if len(part.Invalid) > 0 {
		return nil, &InvalidReferenceError{Field: "product", IDs: part.Invalid}
	}

	o := &Order{UserID: userID, TotalAmount: totalAmount, Status: StatusPending}
	err = tx.QueryRow(ctx, `
		INSERT INTO orders(user_id, total_amount, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`,
		userID, totalAmount, StatusPending,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, &TransactionError{Err: err}
	}

	for _, it := range items {
		item := OrderItem{OrderID: o.ID, ProductID: it.ProductID, Quantity: it.Quantity}
		err = tx.QueryRow(ctx, `
			INSERT INTO order_items(order_id, product_id, quantity)
			VALUES ($1, $2, $3)
			RETURNING id`,
			o.ID, it.ProductID, it.Quantity,
		).Scan(&item.ID)
		if err != nil {
			return nil, &TransactionError{Err: err}
		}
		o.Items = append(o.Items, item)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, &TransactionError{Err: err}
	}
	return o, nil
}

// SkippedGroup reports one candidate order the batch refused.
type SkippedGroup struct {
	UserID     int64
	InvalidIDs []int64
}

type BatchResult struct {
	Created []Order
	Skipped []SkippedGroup
}

// CreateOrdersBatch persists many (order, items) groups inside one shared
// transaction. Each group is validated independently; a group referencing an
// unknown product is skipped and reported, never aborting the rest. Item rows
// are accumulated and bulk-inserted before commit. A commit failure rolls the
// entire batch back, including groups that validated cleanly.
func (r *Repo) CreateOrdersBatch(ctx context.Context, groups []OrderGroup) (*BatchResult, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, &TransactionError{Err: err}
	}
	defer func() { _ = tx.Rollback(ctx) }()

	res := &BatchResult{}
	var itemRows [][]any

	for _, g := range groups {
		if len(g.Items) == 0 {
			res.Skipped = append(res.Skipped, SkippedGroup{UserID: g.UserID})
			continue
		}
		productIDs := make([]int64, 0, len(g.Items))
		for _, it := range g.Items {
			productIDs = append(productIDs, it.ProductID)
		}
		part, err := ValidateRefs(ctx, productIDs, productsExist(tx))
		if err != nil {
			return nil, &TransactionError{Err: err}
		}
		if len(part.Invalid) > 0 {
			res.Skipped = append(res.Skipped, SkippedGroup{UserID: g.UserID, InvalidIDs: part.Invalid})
			continue
		}

		o := Order{UserID: g.UserID, TotalAmount: g.TotalAmount, Status: StatusPending}
		err = tx.QueryRow(ctx, `
			INSERT INTO orders(user_id, total_amount, status)
			VALUES ($1, $2, $3)
			RETURNING id, created_at, updated_at`,
			g.UserID, g.TotalAmount, StatusPending,
		).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
		if err != nil {
			return nil, &TransactionError{Err: err}
		}
		for _, it := range g.Items {
			itemRows = append(itemRows, []any{o.ID, it.ProductID, it.Quantity})
		}
		res.Created = append(res.Created, o)
	}

	if len(itemRows) > 0 {
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"order_items"},
			[]string{"order_id", "product_id", "quantity"},
			pgx.CopyFromRows(itemRows),
		)
		if err != nil {
			return nil, &TransactionError{Err: err}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, &TransactionError{Err: err}
	}
	return res, nil
}

func (r *Repo) GetOrder(ctx context.Context, id int64) (*Order, error) {
	var o Order
	err := r.DB.QueryRow(ctx, `
		SELECT id, user_id, total_amount, status, created_at, updated_at
		FROM orders WHERE id = $1`, id,
	).Scan(&o.ID, &o.UserID, &o.TotalAmount, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Entity: "order"}
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.DB.Query(ctx, `
		SELECT id, order_id, product_id, quantity
		FROM order_items WHERE order_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, it)
	}
	return &o, rows.Err()
}

func (r *Repo) ListByUser(ctx context.Context, userID int64) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, user_id, total_amount, status, created_at, updated_at
		FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.TotalAmount, &o.Status, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// UpdateStatus writes a status the transition engine has already approved.
func (r *Repo) UpdateStatus(ctx context.Context, id int64, status Status) (*Order, error) {
	var o Order
	err := r.DB.QueryRow(ctx, `
		UPDATE orders SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING id, user_id, total_amount, status, created_at, updated_at`,
		id, status,
	).Scan(&o.ID, &o.UserID, &o.TotalAmount, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Entity: "order"}
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// DeleteOrder hard-deletes an order together with its items.
func (r *Repo) DeleteOrder(ctx context.Context, id int64) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return &TransactionError{Err: err}
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, id); err != nil {
		return &TransactionError{Err: err}
	}
	ct, err := tx.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return &TransactionError{Err: err}
	}
	if ct.RowsAffected() == 0 {
		return &NotFoundError{Entity: "order"}
	}
	if err := tx.Commit(ctx); err != nil {
		return &TransactionError{Err: err}
	}
	return nil
}
