package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aflyhorse/pinecitywms/internal/shared"
)

type memoryRepo struct {
	nextID     int64
	items      map[int64]Item
	skus       map[int64]ItemSKU
	warehouses map[int64]Warehouse
	areas      []Area
	deps       []Department
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		nextID:     1,
		items:      make(map[int64]Item),
		skus:       make(map[int64]ItemSKU),
		warehouses: make(map[int64]Warehouse),
	}
}

func (r *memoryRepo) id() int64 {
	id := r.nextID
	r.nextID++
	return id
}

func (r *memoryRepo) CreateItem(ctx context.Context, name string) (Item, error) {
	for _, item := range r.items {
		if item.Name == name {
			return Item{}, ErrDuplicateItem
		}
	}
	item := Item{ID: r.id(), Name: name}
	r.items[item.ID] = item
	return item, nil
}

func (r *memoryRepo) GetItem(ctx context.Context, id int64) (Item, error) {
	if item, ok := r.items[id]; ok {
		return item, nil
	}
	return Item{}, ErrItemNotFound
}

func (r *memoryRepo) ListItems(ctx context.Context, search string) ([]Item, error) {
	var out []Item
	for _, item := range r.items {
		if search == "" || strings.Contains(item.Name, search) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *memoryRepo) CreateSKU(ctx context.Context, sku ItemSKU) (ItemSKU, error) {
	item, ok := r.items[sku.ItemID]
	if !ok {
		return ItemSKU{}, ErrItemNotFound
	}
	for _, existing := range r.skus {
		if existing.ItemID == sku.ItemID && existing.Brand == sku.Brand && existing.Spec == sku.Spec {
			return ItemSKU{}, ErrDuplicateSKU
		}
	}
	sku.ID = r.id()
	sku.ItemName = item.Name
	r.skus[sku.ID] = sku
	return sku, nil
}

func (r *memoryRepo) GetSKU(ctx context.Context, id int64) (ItemSKU, error) {
	if sku, ok := r.skus[id]; ok {
		return sku, nil
	}
	return ItemSKU{}, ErrSKUNotFound
}

func (r *memoryRepo) ListSKUs(ctx context.Context, filters SKUFilters) ([]ItemSKU, int, error) {
	var out []ItemSKU
	for _, sku := range r.skus {
		if sku.Disabled && !filters.IncludeDisabled {
			continue
		}
		if filters.Brand != "" && sku.Brand != filters.Brand {
			continue
		}
		out = append(out, sku)
	}
	return out, len(out), nil
}

func (r *memoryRepo) SetSKUDisabled(ctx context.Context, id int64, disabled bool) error {
	sku, ok := r.skus[id]
	if !ok {
		return ErrSKUNotFound
	}
	sku.Disabled = disabled
	r.skus[id] = sku
	return nil
}

func (r *memoryRepo) CreateWarehouse(ctx context.Context, warehouse Warehouse) (Warehouse, error) {
	for _, existing := range r.warehouses {
		if existing.Name == warehouse.Name {
			return Warehouse{}, ErrDuplicateName
		}
	}
	warehouse.ID = r.id()
	r.warehouses[warehouse.ID] = warehouse
	return warehouse, nil
}

func (r *memoryRepo) GetWarehouse(ctx context.Context, id int64) (Warehouse, error) {
	if warehouse, ok := r.warehouses[id]; ok {
		return warehouse, nil
	}
	return Warehouse{}, ErrWarehouseNotFound
}

func (r *memoryRepo) ListWarehouses(ctx context.Context) ([]Warehouse, error) {
	var out []Warehouse
	for _, warehouse := range r.warehouses {
		out = append(out, warehouse)
	}
	return out, nil
}

func (r *memoryRepo) ListVisibleWarehouses(ctx context.Context, userID int64) ([]Warehouse, error) {
	var out []Warehouse
	for _, warehouse := range r.warehouses {
		if warehouse.IsPublic || warehouse.OwnerID == userID {
			out = append(out, warehouse)
		}
	}
	return out, nil
}

func (r *memoryRepo) ListAreas(ctx context.Context) ([]Area, error) {
	return r.areas, nil
}

func (r *memoryRepo) ListDepartments(ctx context.Context, areaID int64) ([]Department, error) {
	if areaID == 0 {
		return r.deps, nil
	}
	var out []Department
	for _, dept := range r.deps {
		if dept.AreaID == areaID {
			out = append(out, dept)
		}
	}
	return out, nil
}

var admin = shared.Actor{ID: 1, Name: "root", IsAdmin: true}

func TestCreateSKUUniqueness(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	item, err := svc.CreateItem(ctx, "pipe wrench", admin)
	require.NoError(t, err)

	_, err = svc.CreateSKU(ctx, item.ID, "ACME", "300mm", admin)
	require.NoError(t, err)

	// Same triple again is a duplicate, brand/spec are trimmed first.
	_, err = svc.CreateSKU(ctx, item.ID, " ACME ", "300mm", admin)
	require.ErrorIs(t, err, ErrDuplicateSKU)

	// A different spec under the same item and brand is fine.
	_, err = svc.CreateSKU(ctx, item.ID, "ACME", "450mm", admin)
	require.NoError(t, err)
}

func TestDisableSKUExcludedFromDefaultListing(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	item, err := svc.CreateItem(ctx, "gloves", admin)
	require.NoError(t, err)
	sku, err := svc.CreateSKU(ctx, item.ID, "", "L", admin)
	require.NoError(t, err)

	require.NoError(t, svc.DisableSKU(ctx, sku.ID, admin))

	visible, _, err := svc.ListSKUs(ctx, SKUFilters{})
	require.NoError(t, err)
	require.Empty(t, visible)

	all, total, err := svc.ListSKUs(ctx, SKUFilters{IncludeDisabled: true})
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, 1, total)
	require.True(t, all[0].Disabled)

	require.NoError(t, svc.EnableSKU(ctx, sku.ID, admin))
	visible, _, err = svc.ListSKUs(ctx, SKUFilters{})
	require.NoError(t, err)
	require.Len(t, visible, 1)
}

func TestDisableSKURequiresAdmin(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)

	err := svc.DisableSKU(context.Background(), 1, shared.Actor{ID: 5, Name: "bob"})
	require.ErrorIs(t, err, shared.ErrPermissionDenied)
}

func TestCreateWarehouseOwnershipRule(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	// Public with an owner is contradictory.
	_, err := svc.CreateWarehouse(ctx, Warehouse{Name: "central", IsPublic: true, OwnerID: 5}, admin)
	require.ErrorIs(t, err, ErrInvalidOwnership)

	// Private without an owner is too.
	_, err = svc.CreateWarehouse(ctx, Warehouse{Name: "central"}, admin)
	require.ErrorIs(t, err, ErrInvalidOwnership)

	_, err = svc.CreateWarehouse(ctx, Warehouse{Name: "central", IsPublic: true}, admin)
	require.NoError(t, err)

	_, err = svc.CreateWarehouse(ctx, Warehouse{Name: "alice's", OwnerID: 10}, admin)
	require.NoError(t, err)
}

func TestVisibleWarehouses(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	ctx := context.Background()

	_, err := svc.CreateWarehouse(ctx, Warehouse{Name: "central", IsPublic: true}, admin)
	require.NoError(t, err)
	_, err = svc.CreateWarehouse(ctx, Warehouse{Name: "alice's", OwnerID: 10}, admin)
	require.NoError(t, err)
	_, err = svc.CreateWarehouse(ctx, Warehouse{Name: "bob's", OwnerID: 11}, admin)
	require.NoError(t, err)

	all, err := svc.VisibleWarehouses(ctx, admin)
	require.NoError(t, err)
	require.Len(t, all, 3)

	alice, err := svc.VisibleWarehouses(ctx, shared.Actor{ID: 10, Name: "alice"})
	require.NoError(t, err)
	require.Len(t, alice, 2)
	for _, warehouse := range alice {
		require.True(t, warehouse.IsPublic || warehouse.OwnerID == 10)
	}
}
