package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerIntegrity recomputes movement sums and compares them
	// with the ledger entries.
	TaskLedgerIntegrity = "ledger:integrity"
	// TaskReportsWarmup pre-populates the cached report aggregates.
	TaskReportsWarmup = "reports:warmup"
)

// ReportsWarmupPayload selects which warehouse to warm. Zero means all.
type ReportsWarmupPayload struct {
	WarehouseID int64 `json:"warehouse_id"`
}

// NewLedgerIntegrityTask constructs the integrity scan task.
func NewLedgerIntegrityTask() *asynq.Task {
	return asynq.NewTask(TaskLedgerIntegrity, nil)
}

// NewReportsWarmupTask constructs a cache warmup task.
func NewReportsWarmupTask(payload ReportsWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportsWarmup, data), nil
}
