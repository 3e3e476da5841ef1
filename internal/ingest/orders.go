package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"storefront-backend/internal/orders"
)

// Fixed header, field names and order preserved for compatibility with the
// legacy export format.
var orderHeader = []string{"userId", "totalAmount", "productId", "quantity"}

// OrderBatcher is the slice of the order store this pipeline needs.
type OrderBatcher interface {
	CreateOrdersBatch(ctx context.Context, groups []orders.OrderGroup) (*orders.BatchResult, error)
}

type OrderMigrator struct {
	Batch OrderBatcher
	Log   *slog.Logger
}

// Run streams the CSV, aggregates rows into one candidate order per userId,
// and commits every valid group through one shared batch transaction. Invalid
// groups are skipped and reported; a commit failure aborts the whole run.
func (m *OrderMigrator) Run(ctx context.Context, r io.Reader) (*Report, error) {
	report := &Report{}
	groups, err := readOrderGroups(r, m.Log, report)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return report, nil
	}

	res, err := m.Batch.CreateOrdersBatch(ctx, groups)
	if err != nil {
		return nil, err
	}
	report.Migrated = len(res.Created)
	for _, s := range res.Skipped {
		report.skip(m.Log, Skip{
			UserID: s.UserID,
			Reason: fmt.Sprintf("invalid product ids: %s", joinIDs(s.InvalidIDs)),
		})
	}
	return report, nil
}

// readOrderGroups groups flat rows by userId, preserving first-seen order.
// Duplicate userId rows append items; the totalAmount of the last row wins
// when rows disagree.
func readOrderGroups(r io.Reader, log *slog.Logger, report *Report) ([]orders.OrderGroup, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if err := checkHeader(header, orderHeader); err != nil {
		return nil, err
	}

	byUser := make(map[int64]*orders.OrderGroup)
	var keys []int64

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		userID, err := strconv.ParseInt(rec[0], 10, 64)
		if err != nil {
			report.skip(log, Skip{Line: line, Reason: "malformed userId " + strconv.Quote(rec[0])})
			continue
		}
		totalAmount, err := strconv.ParseFloat(rec[1], 64)
		if err != nil || totalAmount < 0 {
			report.skip(log, Skip{Line: line, UserID: userID, Reason: "malformed totalAmount " + strconv.Quote(rec[1])})
			continue
		}
		productID, err := strconv.ParseInt(rec[2], 10, 64)
		if err != nil {
			report.skip(log, Skip{Line: line, UserID: userID, Reason: "malformed productId " + strconv.Quote(rec[2])})
			continue
		}
		quantity, err := strconv.Atoi(rec[3])
		if err != nil || quantity < 1 {
			report.skip(log, Skip{Line: line, UserID: userID, Reason: "malformed quantity " + strconv.Quote(rec[3])})
			continue
		}

		g, ok := byUser[userID]
		if !ok {
			g = &orders.OrderGroup{UserID: userID}
			byUser[userID] = g
			keys = append(keys, userID)
		}
		g.TotalAmount = totalAmount
		g.Items = append(g.Items, orders.ItemInput{ProductID: productID, Quantity: quantity})
	}

	out := make([]orders.OrderGroup, 0, len(keys))
	for _, k := range keys {
		out = append(out, *byUser[k])
	}
	return out, nil
}

func checkHeader(got, want []string) error {
	if len(got) != len(want) {
		return fmt.Errorf("unexpected header %v, want %v", got, want)
	}
	for i := range want {
		if strings.TrimSpace(got[i]) != want[i] {
			return fmt.Errorf("unexpected header %v, want %v", got, want)
		}
	}
	return nil
}

func joinIDs(ids []int64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return strings.Join(parts, ", ")
}
