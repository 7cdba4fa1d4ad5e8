// Package runstore persists run lifecycle records, logs and artifacts.
// Persistence is observability, not correctness: the engine degrades a
// failed store write to a logged warning and keeps assembling.
package runstore

import (
	"errors"

	"github.com/agentic-research/loom/api"
)

// ErrNotFound is returned when a run ID has no record.
var ErrNotFound = errors.New("run not found")

// Run is one persisted run record.
type Run struct {
	ID          string
	BlueprintID string
	Status      api.RunStatus
	Error       string
	StartedAt   int64 // unix seconds
	FinishedAt  int64 // zero while running
}

// LogEntry is one persisted log line for a run.
type LogEntry struct {
	Level   string
	Message string
	At      int64
}

// Artifact is one file the run produced, recorded by path and size.
type Artifact struct {
	Path string
	Size int64
}

// Store is the persistence contract the engine writes through.
type Store interface {
	Start(runID, blueprintID string) error
	Complete(runID string) error
	Fail(runID, message string) error
	Cancel(runID string) error
	AddLog(runID string, entry LogEntry) error
	AddArtifact(runID string, artifact Artifact) error
	Close() error
}

// Nop discards everything. Used when no runs database is configured.
type Nop struct{}

var _ Store = Nop{}

func (Nop) Start(string, string) error         { return nil }
func (Nop) Complete(string) error              { return nil }
func (Nop) Fail(string, string) error          { return nil }
func (Nop) Cancel(string) error                { return nil }
func (Nop) AddLog(string, LogEntry) error      { return nil }
func (Nop) AddArtifact(string, Artifact) error { return nil }
func (Nop) Close() error                       { return nil }
