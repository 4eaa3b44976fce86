package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type lineRequest struct {
	SKUID int64  `json:"sku_id" validate:"required,gt=0"`
	Count int64  `json:"count" validate:"required"`
	Price string `json:"price" validate:"required"`
}

type stockInRequest struct {
	WarehouseID int64         `json:"warehouse_id" validate:"required,gt=0"`
	Refcode     string        `json:"refcode" validate:"omitempty,max=64"`
	Note        string        `json:"note" validate:"omitempty,max=500"`
	Lines       []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

type stockOutRequest struct {
	WarehouseID  int64         `json:"warehouse_id" validate:"required,gt=0"`
	Refcode      string        `json:"refcode" validate:"omitempty,max=64"`
	Note         string        `json:"note" validate:"omitempty,max=500"`
	AreaID       int64         `json:"area_id" validate:"omitempty,gt=0"`
	DepartmentID int64         `json:"department_id" validate:"omitempty,gt=0"`
	Location     string        `json:"location" validate:"omitempty,max=100"`
	Lines        []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

type takeStockRequest struct {
	WarehouseID int64         `json:"warehouse_id" validate:"required,gt=0"`
	Refcode     string        `json:"refcode" validate:"omitempty,max=64"`
	Note        string        `json:"note" validate:"omitempty,max=500"`
	Lines       []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

type revokeRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type movementResponse struct {
	ID    int64  `json:"id"`
	SKUID int64  `json:"sku_id"`
	Count int64  `json:"count"`
	Price string `json:"price"`
}

type receiptResponse struct {
	ID           int64              `json:"id"`
	Refcode      string             `json:"refcode,omitempty"`
	Type         ReceiptType        `json:"type"`
	WarehouseID  int64              `json:"warehouse_id"`
	OperatorID   int64              `json:"operator_id"`
	Date         time.Time          `json:"date"`
	Note         string             `json:"note,omitempty"`
	Revoked      bool               `json:"revoked"`
	ReversalOf   int64              `json:"reversal_of,omitempty"`
	AreaID       int64              `json:"area_id,omitempty"`
	DepartmentID int64              `json:"department_id,omitempty"`
	Location     string             `json:"location,omitempty"`
	Movements    []movementResponse `json:"movements,omitempty"`
}

func newReceiptResponse(receipt Receipt, movements []Movement) receiptResponse {
	resp := receiptResponse{
		ID:           receipt.ID,
		Refcode:      receipt.Refcode,
		Type:         receipt.Type,
		WarehouseID:  receipt.WarehouseID,
		OperatorID:   receipt.OperatorID,
		Date:         receipt.Date,
		Note:         receipt.Note,
		Revoked:      receipt.Revoked,
		ReversalOf:   receipt.ReversalOf,
		AreaID:       receipt.AreaID,
		DepartmentID: receipt.DepartmentID,
		Location:     receipt.Location,
	}
	for _, m := range movements {
		resp.Movements = append(resp.Movements, movementResponse{
			ID:    m.ID,
			SKUID: m.SKUID,
			Count: m.Count,
			Price: m.Price.StringFixed(2),
		})
	}
	return resp
}

func parseLines(lines []lineRequest) ([]LineInput, error) {
	parsed := make([]LineInput, len(lines))
	for i, line := range lines {
		price, err := decimal.NewFromString(line.Price)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid price %q", i+1, line.Price)
		}
		parsed[i] = LineInput{SKUID: line.SKUID, Count: line.Count, Price: price}
	}
	return parsed, nil
}
