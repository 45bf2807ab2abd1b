// Package monitor reports session health: a status file for quick local
// inspection and periodic counter points shipped to InfluxDB.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/distsim/transformsync/internal/cache"
	"github.com/distsim/transformsync/internal/influx"
	"github.com/distsim/transformsync/internal/logging"
	"github.com/distsim/transformsync/internal/replication"
)

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	LogManager     *logging.SlogManager
	Stats          *replication.Stats
	Objects        *cache.ObjectCache
	JournalPending func() int     // nil when journaling is disabled
	Influx         *influx.Manager // nil when metrics export is disabled
	Session        string
	StatusDir      string
}

// Status is one sampled view of the replication session.
type Status struct {
	Time           time.Time `json:"time"`
	Session        string    `json:"session"`
	Objects        int       `json:"objects"`
	Broadcasts     uint64    `json:"broadcasts"`
	Accepted       uint64    `json:"accepted"`
	Stale          uint64    `json:"stale"`
	JournalPending int       `json:"journalPending"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Sample reads the current counters into a Status.
func (s *Service) Sample() Status {
	status := Status{
		Time:       time.Now(),
		Session:    s.deps.Session,
		Objects:    s.deps.Objects.Len(),
		Broadcasts: s.deps.Stats.Broadcasts.Load(),
		Accepted:   s.deps.Stats.Accepted.Load(),
		Stale:      s.deps.Stats.Stale.Load(),
	}
	if s.deps.JournalPending != nil {
		status.JournalPending = s.deps.JournalPending()
	}
	return status
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	stopChan := s.stopChan
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.LogManager.Logger()
		logger.Debug("Starting status monitor goroutine")

		statusFile, err := os.Create(filepath.Join(s.deps.StatusDir, "status.txt"))
		if err != nil {
			logger.Error("Error creating status file", "error", err)
		}
		defer statusFile.Close()

		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-stopChan:
				return
			case <-ticker.C:
				status := s.Sample()

				if statusFile != nil {
					line, err := json.MarshalIndent(status, "", "  ")
					if err != nil {
						line = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
					}
					statusFile.Truncate(0)
					statusFile.Seek(0, 0)
					statusFile.Write(append(line, '\n'))
				}

				if s.deps.Influx != nil {
					point := influx.ReplicationPoint(
						s.deps.Session, s.deps.Stats, status.Objects, status.Time)
					if err := s.deps.Influx.WritePoint(
						context.Background(), influx.ReplicationBucket, point); err != nil {
						logger.Error("Error writing replication point", "error", err)
					}
				}
			}
		}
	}()

	return nil
}

// Stop stops the status monitor
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		close(s.stopChan)
	}
}
