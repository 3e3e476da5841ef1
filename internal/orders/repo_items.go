package orders

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// GetItem loads one order item together with its parent order, which callers
// need for ownership checks.
func (r *Repo) GetItem(ctx context.Context, id int64) (*OrderItem, *Order, error) {
	var it OrderItem
	var o Order
	err := r.DB.QueryRow(ctx, `
		SELECT i.id, i.order_id, i.product_id, i.quantity,
		       o.id, o.user_id, o.total_amount, o.status, o.created_at, o.updated_at
		FROM order_items i
		JOIN orders o ON o.id = i.order_id
		WHERE i.id = $1`, id,
	).Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity,
		&o.ID, &o.UserID, &o.TotalAmount, &o.Status, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, &NotFoundError{Entity: "order item"}
	}
	if err != nil {
		return nil, nil, err
	}
	return &it, &o, nil
}

// AddItem appends a line item to an existing order after checking the product
// still exists. The caller is expected to have authorized against the parent
// order already.
func (r *Repo) AddItem(ctx context.Context, orderID, productID int64, quantity int) (*OrderItem, error) {
	if quantity < 1 {
		return nil, &ValidationError{Msg: "quantity must be at least 1"}
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, &TransactionError{Err: err}
	}
	defer func() { _ = tx.Rollback(ctx) }()

	part, err := ValidateRefs(ctx, []int64{productID}, productsExist(tx))
	if err != nil {
		return nil, &TransactionError{Err: err}
	}
	if len(part.Invalid) > 0 {
		return nil, &InvalidReferenceError{Field: "product", IDs: part.Invalid}
	}

	it := &OrderItem{OrderID: orderID, ProductID: productID, Quantity: quantity}
	err = tx.QueryRow(ctx, `
		INSERT INTO order_items(order_id, product_id, quantity)
		VALUES ($1, $2, $3)
		RETURNING id`,
		orderID, productID, quantity,
	).Scan(&it.ID)
	if err != nil {
		return nil, &TransactionError{Err: err}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, &TransactionError{Err: err}
	}
	return it, nil
}

func (r *Repo) UpdateItemQuantity(ctx context.Context, id int64, quantity int) (*OrderItem, error) {
	if quantity < 1 {
		return nil, &ValidationError{Msg: "quantity must be at least 1"}
	}
	var it OrderItem
	err := r.DB.QueryRow(ctx, `
		UPDATE order_items SET quantity = $2
		WHERE id = $1
		RETURNING id, order_id, product_id, quantity`,
		id, quantity,
	).Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Entity: "order item"}
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *Repo) DeleteItem(ctx context.Context, id int64) error {
	ct, err := r.DB.Exec(ctx, `DELETE FROM order_items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return &NotFoundError{Entity: "order item"}
	}
	return nil
}
