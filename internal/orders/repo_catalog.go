package orders

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProductCatalog is the product surface the order subsystem needs: a batched
// existence check for validation and an atomic bulk insert for ingestion.
// Products are otherwise read-only from here.
type ProductCatalog interface {
	ExistingIDs(ctx context.Context, ids []int64) (map[int64]struct{}, error)
	InsertBatch(ctx context.Context, products []Product) (int, error)
}

// UserDirectory answers seller existence checks during product ingestion.
type UserDirectory interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

type CatalogRepo struct{ DB *pgxpool.Pool }

var _ ProductCatalog = (*CatalogRepo)(nil)

func (r *CatalogRepo) ExistingIDs(ctx context.Context, ids []int64) (map[int64]struct{}, error) {
	if len(ids) == 0 {
		return map[int64]struct{}{}, nil
	}
	rows, err := r.DB.Query(ctx, `SELECT id FROM products WHERE id = ANY($1)`, ids)
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

// InsertBatch writes all products in one transaction via COPY. All rows land
// or none do.
func (r *CatalogRepo) InsertBatch(ctx context.Context, products []Product) (int, error) {
	if len(products) == 0 {
		return 0, nil
	}
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, &TransactionError{Err: err}
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows := make([][]any, 0, len(products))
	for _, p := range products {
		rows = append(rows, []any{p.Name, p.Description, p.Price, p.Stock, p.SellerID})
	}
	n, err := tx.CopyFrom(ctx,
		pgx.Identifier{"products"},
		[]string{"name", "description", "price", "stock", "seller_id"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return 0, &TransactionError{Err: err}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, &TransactionError{Err: err}
	}
	return int(n), nil
}

type UserRepo struct{ DB *pgxpool.Pool }

var _ UserDirectory = (*UserRepo)(nil)

func (r *UserRepo) Exists(ctx context.Context, id int64) (bool, error) {
	var n int
	err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE id = $1`, id).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
