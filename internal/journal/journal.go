// Package journal persists accepted snapshots in batches. Records queue in
// memory and a background goroutine flushes them to the database on an
// interval, so the receive path never waits on the store.
package journal

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/distsim/transformsync/internal/queue"
	"github.com/distsim/transformsync/pkg/core"
)

// DefaultFlushInterval is how often queued records are written out.
const DefaultFlushInterval = 3 * time.Second

// Service batches applied snapshots into the database.
type Service struct {
	db       *gorm.DB
	interval time.Duration
	logger   *slog.Logger
	pending  *queue.Queue[AppliedSnapshot]

	mu        sync.Mutex
	isRunning bool
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a journal over an already-connected database. interval
// of zero uses DefaultFlushInterval.
func NewService(db *gorm.DB, interval time.Duration, logger *slog.Logger) *Service {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	return &Service{
		db:       db,
		interval: interval,
		logger:   logger,
		pending:  queue.New[AppliedSnapshot](),
	}
}

// Record queues one accepted snapshot. Safe for concurrent use; the write
// happens on the next flush.
func (s *Service) Record(id core.ObjectID, timestamp float64, snap core.TransformSnapshot, raw []byte) {
	decoded, err := json.Marshal(snap)
	if err != nil {
		s.logger.Error("Failed to marshal snapshot for journal", "object", id, "error", err)
		return
	}
	rawCopy := make([]byte, len(raw))
	copy(rawCopy, raw)

	s.pending.Push(AppliedSnapshot{
		ObjectID:  id,
		Timestamp: timestamp,
		Transform: decoded,
		Raw:       rawCopy,
	})
}

// Pending returns the number of records awaiting flush.
func (s *Service) Pending() int {
	return s.pending.Len()
}

// Start launches the flush goroutine. Calling Start on a running service is
// a no-op.
func (s *Service) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stopChan := s.stopChan
	done := s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-stopChan:
				// Final flush so stop does not lose queued records.
				s.Flush()
				return
			case <-ticker.C:
				s.Flush()
			}
		}
	}()
}

// Stop halts the flush goroutine. It returns only after the final flush has
// completed, so queued records are in the database when Stop comes back.
// Idempotent.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()

	<-done
}

// IsRunning reports whether the flush goroutine is active.
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// Flush writes all queued records in one batch insert.
func (s *Service) Flush() {
	records := s.pending.Drain()
	if len(records) == 0 {
		return
	}

	start := time.Now()
	if err := s.db.Create(&records).Error; err != nil {
		s.logger.Error("Journal flush failed", "records", len(records), "error", err)
		// Re-queue so a transient DB outage does not drop records.
		s.pending.Push(records...)
		return
	}
	s.logger.Debug("Journal flushed",
		"records", len(records), "duration", time.Since(start))
}
