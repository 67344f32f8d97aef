package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskBillOverdueScan bulk-flips elapsed unpaid bills to overdue.
	TaskBillOverdueScan = "bills:overdue_scan"
)

// BillOverdueScanPayload carries scheduling metadata.
type BillOverdueScanPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewBillOverdueScanTask constructs an Asynq task for the overdue scan.
func NewBillOverdueScanTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(BillOverdueScanPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBillOverdueScan, body, asynq.Queue(QueueDefault)), nil
}

// OverdueSweeper performs the bulk overdue transition.
type OverdueSweeper interface {
	SweepOverdue(ctx context.Context) (int64, error)
}

// NewBillOverdueScanHandler returns the Asynq handler for the scan.
// It runs the same transition as the lazy flip on the vendor-bills
// read path, so the two can never disagree.
func NewBillOverdueScanHandler(sweeper OverdueSweeper, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload BillOverdueScanPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		flipped, err := sweeper.SweepOverdue(ctx)
		if err != nil {
			return err
		}
		logger.Info("overdue scan complete",
			slog.Int64("flipped", flipped),
			slog.Time("scheduled_for", payload.ScheduledFor),
		)
		return nil
	}
}
