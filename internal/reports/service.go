package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"golang.org/x/sync/singleflight"
)

// RepositoryPort abstracts the report queries for the service.
type RepositoryPort interface {
	Usage(ctx context.Context, filter PeriodFilter) ([]UsageRow, error)
	Fees(ctx context.Context, filter PeriodFilter) ([]FeeRow, error)
	Inventory(ctx context.Context, filter InventoryFilter) ([]InventoryRow, int, error)
}

// Service serves report reads through the cache. Concurrent identical
// queries are collapsed with singleflight so a cold cache does not
// stampede postgres.
type Service struct {
	repo  RepositoryPort
	cache *Cache
	group singleflight.Group
}

func NewService(repo RepositoryPort, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache}
}

func (s *Service) Usage(ctx context.Context, filter PeriodFilter) ([]UsageRow, error) {
	key, err := s.cache.BuildKey(ctx, "reports", "usage", periodKey(filter))
	if err != nil {
		return nil, err
	}
	var rows []UsageRow
	err = s.fetch(ctx, key, &rows, func(ctx context.Context) (any, error) {
		return s.repo.Usage(ctx, filter)
	})
	return rows, err
}

func (s *Service) Fees(ctx context.Context, filter PeriodFilter) ([]FeeRow, error) {
	key, err := s.cache.BuildKey(ctx, "reports", "fees", periodKey(filter))
	if err != nil {
		return nil, err
	}
	var rows []FeeRow
	err = s.fetch(ctx, key, &rows, func(ctx context.Context) (any, error) {
		return s.repo.Fees(ctx, filter)
	})
	return rows, err
}

// Inventory is not cached: it reads current ledger state, which changes
// with every receipt, and the listing is already a cheap indexed query.
func (s *Service) Inventory(ctx context.Context, filter InventoryFilter) ([]InventoryRow, int, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	return s.repo.Inventory(ctx, filter)
}

// Invalidate drops all cached aggregates. Callers invoke it after any
// ledger write.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

// Warmup pre-populates the all-time aggregates for one warehouse.
func (s *Service) Warmup(ctx context.Context, warehouseID int64) error {
	filter := PeriodFilter{WarehouseID: warehouseID}
	if _, err := s.Usage(ctx, filter); err != nil {
		return err
	}
	_, err := s.Fees(ctx, filter)
	return err
}

// fetch collapses concurrent identical lookups. The group callback
// returns raw JSON so a shared result can be unmarshalled into every
// waiting caller's destination, not just the winner's.
func (s *Service) fetch(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	resultChan := s.group.DoChan(key, func() (any, error) {
		var raw json.RawMessage
		if err := s.cache.FetchJSON(context.WithoutCancel(ctx), key, &raw, loader); err != nil {
			return nil, err
		}
		return raw, nil
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return res.Err
		}
		return json.Unmarshal(res.Val.(json.RawMessage), dest)
	}
}

func periodKey(filter PeriodFilter) string {
	start, end := "", ""
	if !filter.Start.IsZero() {
		start = strconv.FormatInt(filter.Start.Unix(), 10)
	}
	if !filter.End.IsZero() {
		end = strconv.FormatInt(filter.End.Unix(), 10)
	}
	return fmt.Sprintf("%d:%s:%s", filter.WarehouseID, start, end)
}
