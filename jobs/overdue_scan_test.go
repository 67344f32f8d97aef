package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type fakeSweeper struct {
	flipped int64
	err     error
	calls   int
}

func (f *fakeSweeper) SweepOverdue(ctx context.Context) (int64, error) {
	f.calls++
	return f.flipped, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBillOverdueScanTaskPayload(t *testing.T) {
	at := time.Date(2024, 6, 15, 3, 0, 0, 0, time.UTC)
	task, err := NewBillOverdueScanTask(at)
	require.NoError(t, err)
	require.Equal(t, TaskBillOverdueScan, task.Type())

	var payload BillOverdueScanPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.True(t, payload.ScheduledFor.Equal(at))
}

func TestBillOverdueScanHandler(t *testing.T) {
	sweeper := &fakeSweeper{flipped: 4}
	handler := NewBillOverdueScanHandler(sweeper, discardLogger())

	task, err := NewBillOverdueScanTask(time.Now())
	require.NoError(t, err)
	require.NoError(t, handler(context.Background(), task))
	require.Equal(t, 1, sweeper.calls)
}

func TestBillOverdueScanHandlerPropagatesError(t *testing.T) {
	sweeper := &fakeSweeper{err: errors.New("db down")}
	handler := NewBillOverdueScanHandler(sweeper, discardLogger())

	task, err := NewBillOverdueScanTask(time.Now())
	require.NoError(t, err)
	require.Error(t, handler(context.Background(), task))
}

func TestBillOverdueScanHandlerSkipsBadPayload(t *testing.T) {
	sweeper := &fakeSweeper{}
	handler := NewBillOverdueScanHandler(sweeper, discardLogger())

	bad := asynq.NewTask(TaskBillOverdueScan, []byte("{not json"))
	err := handler(context.Background(), bad)
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.Zero(t, sweeper.calls)
}
