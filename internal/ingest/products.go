package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"storefront-backend/internal/orders"
)

var productHeader = []string{"name", "price", "description", "stock", "sellerId"}

const defaultSellerCheckWorkers = 8

type ProductMigrator struct {
	Catalog orders.ProductCatalog
	Users   orders.UserDirectory
	Log     *slog.Logger

	// Workers caps the concurrent seller existence checks.
	Workers int
}

type productCandidate struct {
	line    int
	product orders.Product
}

// Run parses the CSV, drops rows missing required fields, checks each
// remaining row's seller concurrently under a bounded group, and inserts all
// surviving rows in one atomic batch. Per-row skips never abort the run; a
// lookup or commit failure is fatal.
func (m *ProductMigrator) Run(ctx context.Context, r io.Reader) (*Report, error) {
	report := &Report{}
	candidates, err := m.read(r, report)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return report, nil
	}

	workers := m.Workers
	if workers <= 0 {
		workers = defaultSellerCheckWorkers
	}

	var mu sync.Mutex
	var valid []productCandidate
	var missing []productCandidate

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, c := range candidates {
		g.Go(func() error {
			ok, err := m.Users.Exists(gctx, c.product.SellerID)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			if ok {
				valid = append(valid, c)
			} else {
				missing = append(missing, c)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("seller lookup: %w", err)
	}

	// Checks complete out of order; restore file order before reporting and
	// inserting.
	sort.Slice(missing, func(i, j int) bool { return missing[i].line < missing[j].line })
	sort.Slice(valid, func(i, j int) bool { return valid[i].line < valid[j].line })

	for _, c := range missing {
		report.skip(m.Log, Skip{
			Line:   c.line,
			Name:   c.product.Name,
			Reason: fmt.Sprintf("seller %d not found", c.product.SellerID),
		})
	}
	if len(valid) == 0 {
		return report, nil
	}

	products := make([]orders.Product, 0, len(valid))
	for _, c := range valid {
		products = append(products, c.product)
	}
	n, err := m.Catalog.InsertBatch(ctx, products)
	if err != nil {
		return nil, err
	}
	report.Migrated = n
	return report, nil
}

func (m *ProductMigrator) read(r io.Reader, report *Report) ([]productCandidate, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if err := checkHeader(header, productHeader); err != nil {
		return nil, err
	}

	var out []productCandidate
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		name, priceStr, description, stockStr, sellerStr := rec[0], rec[1], rec[2], rec[3], rec[4]
		if name == "" || priceStr == "" || description == "" || stockStr == "" || sellerStr == "" {
			report.skip(m.Log, Skip{Line: line, Name: name, Reason: "missing required field"})
			continue
		}
		price, err := strconv.ParseFloat(priceStr, 64)
		if err != nil || price < 0 {
			report.skip(m.Log, Skip{Line: line, Name: name, Reason: "malformed price " + strconv.Quote(priceStr)})
			continue
		}
		stock, err := strconv.Atoi(stockStr)
		if err != nil || stock < 0 {
			report.skip(m.Log, Skip{Line: line, Name: name, Reason: "malformed stock " + strconv.Quote(stockStr)})
			continue
		}
		sellerID, err := strconv.ParseInt(sellerStr, 10, 64)
		if err != nil {
			report.skip(m.Log, Skip{Line: line, Name: name, Reason: "malformed sellerId " + strconv.Quote(sellerStr)})
			continue
		}

		out = append(out, productCandidate{
			line: line,
			product: orders.Product{
				Name:        name,
				Description: description,
				Price:       price,
				Stock:       stock,
				SellerID:    sellerID,
			},
		})
	}
	return out, nil
}
