package catalog

import (
	"errors"
	"time"
)

// Item is a product in the catalog. Variants live in ItemSKU.
type Item struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// ItemSKU is one stockable variant of an item. The (item, brand, spec)
// triple is unique among non-deleted SKUs. Disabled is a soft delete:
// the SKU keeps appearing in historical ledgers but is rejected on new
// stock-in receipts.
type ItemSKU struct {
	ID        int64     `json:"id"`
	ItemID    int64     `json:"item_id"`
	ItemName  string    `json:"item_name"`
	Brand     string    `json:"brand"`
	Spec      string    `json:"spec"`
	Disabled  bool      `json:"disabled"`
	CreatedAt time.Time `json:"created_at"`
}

// Warehouse is a stock location. It is either public (shared, OwnerID
// zero) or private (owned by exactly one user). Visibility rules derive
// from this split: public warehouses are visible to everyone, private
// ones only to their owner and admins.
type Warehouse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	OwnerID   int64     `json:"owner_id,omitempty"`
	IsPublic  bool      `json:"is_public"`
	CreatedAt time.Time `json:"created_at"`
}

// Area is a coarse destination grouping for outbound receipts.
type Area struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Department is a fine-grained outbound destination within an area.
type Department struct {
	ID     int64  `json:"id"`
	AreaID int64  `json:"area_id"`
	Name   string `json:"name"`
}

var (
	ErrItemNotFound      = errors.New("item not found")
	ErrSKUNotFound       = errors.New("sku not found")
	ErrWarehouseNotFound = errors.New("warehouse not found")
	ErrDuplicateItem     = errors.New("item name already exists")
	ErrDuplicateSKU      = errors.New("sku with this brand and spec already exists")
	ErrDuplicateName     = errors.New("warehouse name already exists")
	ErrInvalidOwnership  = errors.New("warehouse must be public or have an owner, not both")
)
