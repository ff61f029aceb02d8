package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	exportRunsKey  = "receivables:exports"
	exportRunsKeep = 50
)

// ExportRun records the outcome of one report export.
type ExportRun struct {
	ID         string    `json:"id"`
	Format     string    `json:"format"`
	Start      string    `json:"start,omitempty"`
	End        string    `json:"end,omitempty"`
	Customer   string    `json:"customer,omitempty"`
	Rows       int       `json:"rows"`
	Location   string    `json:"location,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// ExportStore keeps the most recent export runs in a capped Redis list.
type ExportStore struct {
	client redis.Cmdable
	key    string
	keep   int64
}

// NewExportStore constructs a store backed by client.
func NewExportStore(client redis.Cmdable) *ExportStore {
	return &ExportStore{client: client, key: exportRunsKey, keep: exportRunsKeep}
}

// Record prepends run and trims the list.
func (s *ExportStore) Record(ctx context.Context, run ExportRun) error {
	if s == nil || s.client == nil {
		return nil
	}
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("export store: encode run: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, s.key, data)
		pipe.LTrim(ctx, s.key, 0, s.keep-1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("export store: record: %w", err)
	}
	return nil
}

// Recent returns up to limit runs, newest first. A non-positive limit returns
// every retained run.
func (s *ExportStore) Recent(ctx context.Context, limit int) ([]ExportRun, error) {
	if s == nil || s.client == nil {
		return nil, nil
	}
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	items, err := s.client.LRange(ctx, s.key, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("export store: list: %w", err)
	}
	runs := make([]ExportRun, 0, len(items))
	for _, item := range items {
		var run ExportRun
		if err := json.Unmarshal([]byte(item), &run); err != nil {
			continue
		}
		runs = append(runs, run)
	}
	return runs, nil
}
