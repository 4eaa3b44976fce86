package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/aflyhorse/pinecitywms/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	CreateItem(ctx context.Context, name string) (Item, error)
	GetItem(ctx context.Context, id int64) (Item, error)
	ListItems(ctx context.Context, search string) ([]Item, error)
	CreateSKU(ctx context.Context, sku ItemSKU) (ItemSKU, error)
	GetSKU(ctx context.Context, id int64) (ItemSKU, error)
	ListSKUs(ctx context.Context, filters SKUFilters) ([]ItemSKU, int, error)
	SetSKUDisabled(ctx context.Context, id int64, disabled bool) error
	CreateWarehouse(ctx context.Context, warehouse Warehouse) (Warehouse, error)
	GetWarehouse(ctx context.Context, id int64) (Warehouse, error)
	ListWarehouses(ctx context.Context) ([]Warehouse, error)
	ListVisibleWarehouses(ctx context.Context, userID int64) ([]Warehouse, error)
	ListAreas(ctx context.Context) ([]Area, error)
	ListDepartments(ctx context.Context, areaID int64) ([]Department, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

func (s *Service) CreateItem(ctx context.Context, name string, actor shared.Actor) (Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Item{}, fmt.Errorf("item name required")
	}
	item, err := s.repo.CreateItem(ctx, name)
	if err != nil {
		return Item{}, err
	}
	s.recordAudit(ctx, actor, "catalog:item_create", "item", item.ID, map[string]any{"name": name})
	return item, nil
}

func (s *Service) ListItems(ctx context.Context, search string) ([]Item, error) {
	return s.repo.ListItems(ctx, search)
}

// CreateSKU adds a variant under an item. Brand and spec may be empty;
// the (item, brand, spec) triple must still be unique.
func (s *Service) CreateSKU(ctx context.Context, itemID int64, brand, spec string, actor shared.Actor) (ItemSKU, error) {
	if itemID <= 0 {
		return ItemSKU{}, ErrItemNotFound
	}
	sku := ItemSKU{
		ItemID: itemID,
		Brand:  strings.TrimSpace(brand),
		Spec:   strings.TrimSpace(spec),
	}
	created, err := s.repo.CreateSKU(ctx, sku)
	if err != nil {
		return ItemSKU{}, err
	}
	s.recordAudit(ctx, actor, "catalog:sku_create", "sku", created.ID, map[string]any{
		"item_id": itemID, "brand": sku.Brand, "spec": sku.Spec,
	})
	return created, nil
}

func (s *Service) GetSKU(ctx context.Context, id int64) (ItemSKU, error) {
	return s.repo.GetSKU(ctx, id)
}

func (s *Service) ListSKUs(ctx context.Context, filters SKUFilters) ([]ItemSKU, int, error) {
	if filters.Limit <= 0 {
		filters.Limit = 50
	}
	if filters.Page < 1 {
		filters.Page = 1
	}
	return s.repo.ListSKUs(ctx, filters)
}

// DisableSKU soft-deletes a SKU. Historical ledger rows keep referencing
// it; new stock-in receipts reject it.
func (s *Service) DisableSKU(ctx context.Context, id int64, actor shared.Actor) error {
	if !actor.IsAdmin {
		return shared.ErrPermissionDenied
	}
	if err := s.repo.SetSKUDisabled(ctx, id, true); err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "catalog:sku_disable", "sku", id, nil)
	return nil
}

// EnableSKU reverses a soft delete.
func (s *Service) EnableSKU(ctx context.Context, id int64, actor shared.Actor) error {
	if !actor.IsAdmin {
		return shared.ErrPermissionDenied
	}
	if err := s.repo.SetSKUDisabled(ctx, id, false); err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "catalog:sku_enable", "sku", id, nil)
	return nil
}

// CreateWarehouse enforces the ownership rule: a warehouse is public with
// no owner, or private with exactly one owner.
func (s *Service) CreateWarehouse(ctx context.Context, warehouse Warehouse, actor shared.Actor) (Warehouse, error) {
	if !actor.IsAdmin {
		return Warehouse{}, shared.ErrPermissionDenied
	}
	warehouse.Name = strings.TrimSpace(warehouse.Name)
	if warehouse.Name == "" {
		return Warehouse{}, fmt.Errorf("warehouse name required")
	}
	if warehouse.IsPublic == (warehouse.OwnerID != 0) {
		return Warehouse{}, ErrInvalidOwnership
	}
	created, err := s.repo.CreateWarehouse(ctx, warehouse)
	if err != nil {
		return Warehouse{}, err
	}
	s.recordAudit(ctx, actor, "catalog:warehouse_create", "warehouse", created.ID, map[string]any{
		"name": created.Name, "is_public": created.IsPublic,
	})
	return created, nil
}

func (s *Service) GetWarehouse(ctx context.Context, id int64) (Warehouse, error) {
	return s.repo.GetWarehouse(ctx, id)
}

// VisibleWarehouses lists what the actor may operate on: admins see all
// warehouses, everyone else sees public ones plus their own.
func (s *Service) VisibleWarehouses(ctx context.Context, actor shared.Actor) ([]Warehouse, error) {
	if actor.IsAdmin {
		return s.repo.ListWarehouses(ctx)
	}
	return s.repo.ListVisibleWarehouses(ctx, actor.ID)
}

func (s *Service) ListAreas(ctx context.Context) ([]Area, error) {
	return s.repo.ListAreas(ctx)
}

func (s *Service) ListDepartments(ctx context.Context, areaID int64) ([]Department, error) {
	return s.repo.ListDepartments(ctx, areaID)
}

func (s *Service) recordAudit(ctx context.Context, actor shared.Actor, action, entity string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   action,
		Entity:   entity,
		EntityID: fmt.Sprintf("%d", id),
		Meta:     meta,
	})
}
