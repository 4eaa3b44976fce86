package reports

import (
	"time"

	"github.com/shopspring/decimal"
)

// UsageRow is one aggregate of outbound consumption over a period,
// grouped by warehouse and destination. Revoked receipts and their
// reversals are excluded, so the numbers reflect real consumption.
type UsageRow struct {
	WarehouseID    int64           `json:"warehouse_id"`
	WarehouseName  string          `json:"warehouse_name"`
	AreaID         int64           `json:"area_id,omitempty"`
	AreaName       string          `json:"area_name,omitempty"`
	DepartmentID   int64           `json:"department_id,omitempty"`
	DepartmentName string          `json:"department_name,omitempty"`
	Quantity       int64           `json:"quantity"`
	Value          decimal.Decimal `json:"value"`
}

// FeeRow is one aggregate of inbound procurement cost over a period.
type FeeRow struct {
	WarehouseID   int64           `json:"warehouse_id"`
	WarehouseName string          `json:"warehouse_name"`
	Quantity      int64           `json:"quantity"`
	Value         decimal.Decimal `json:"value"`
}

// InventoryRow is a ledger entry joined with its SKU for display.
type InventoryRow struct {
	WarehouseID int64           `json:"warehouse_id"`
	SKUID       int64           `json:"sku_id"`
	ItemName    string          `json:"item_name"`
	Brand       string          `json:"brand"`
	Spec        string          `json:"spec"`
	Count       int64           `json:"count"`
	AvgPrice    decimal.Decimal `json:"avg_price"`
	TotalValue  decimal.Decimal `json:"total_value"`
}

// PeriodFilter bounds usage and fee aggregation. Zero times mean
// unbounded on that side.
type PeriodFilter struct {
	WarehouseID int64
	Start       time.Time
	End         time.Time
}

// InventoryFilter narrows the inventory listing.
type InventoryFilter struct {
	WarehouseID int64
	Search      string
	Brand       string
	Page        int
	Limit       int
}
