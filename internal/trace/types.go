// Package trace defines the execution trace model shared by the dry-run
// walker, the SQLite sandbox and the live rollback executor: TraceEvent,
// RunSummary and RunResult, plus the monotonic event-id / run-id generators
// each run owns.
package trace

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EventType is the closed set of trace event kinds.
type EventType string

const (
	EventStart       EventType = "start"
	EventSimulated   EventType = "simulated"
	EventBranch      EventType = "branch"
	EventResultSet   EventType = "resultset"
	EventDML         EventType = "dml"
	EventInfo        EventType = "info"
	EventError       EventType = "error"
	EventTxn         EventType = "txn"
	EventStatement   EventType = "statement"
	EventControlFlow EventType = "control-flow"
	EventComplete    EventType = "complete"
)

// Mode is the execution mode that produced a RunResult.
type Mode string

const (
	ModeDryRun Mode = "dryrun"
	ModeSQLite Mode = "sqlite"
	ModeLive   Mode = "live"
)

// PreviewRowCap is the maximum number of preview rows attached to a
// resultset event (spec §6, bit-exact).
const PreviewRowCap = 50

// TablePreviewRowCap is the maximum number of preview rows per table in
// sqliteMetadata.dataPreview (spec §6, bit-exact).
const TablePreviewRowCap = 3

// LiveStatementTimeout is the statement timeout for the live executor
// (spec §6, bit-exact).
const LiveStatementTimeout = 30 * time.Second

// TraceEvent is one entry in a run's trace. Events are appended in order by
// exactly one executor and never mutated afterwards.
type TraceEvent struct {
	EventID      int
	Timestamp    time.Time
	NodeID       string // optional CFG correlation
	EventType    EventType
	SQLText      string
	RowCount     *int
	ErrorNumber  *int
	ErrorMessage string
	Columns      []string
	PreviewRows  [][]any
	BranchTaken  string
	Duration     time.Duration
}

// RunSummary is the aggregate view of a completed (or cancelled) run.
type RunSummary struct {
	TotalStatements   int
	TotalRowsAffected int
	TotalDurationMs   int64
	HadError          bool
	ErrorMessage      string
	Mode              Mode
}

// SQLiteMetadata is attached to a RunResult when Mode == ModeSQLite.
type SQLiteMetadata struct {
	DataPreview        map[string]TablePreview
	TablesCreated      []string
	TotalRowsGenerated int
}

// TablePreview is the per-table preview attached to SQLiteMetadata.
type TablePreview struct {
	Columns    []string
	SampleRows [][]any
	RowCount   int
}

// RunResult is the external shape returned by the dry-run walker, the sandbox
// and the live executor (spec §6).
type RunResult struct {
	RunID          string
	Summary        RunSummary
	Trace          []TraceEvent
	ExecutedNodes  []string
	ExecutedEdges  []string
	SQLiteMetadata *SQLiteMetadata
}

// NewRunID generates a 12-hex-character run identifier, the first 12 hex
// characters of a v4 UUID with dashes stripped — the same ID library the
// teacher uses for entity identifiers in internal/storage/graph_writer.go.
func NewRunID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return id[:12]
}

// Recorder accumulates trace events for one run with a monotonic event-id
// counter scoped to that run (never process-global, per DESIGN NOTES
// "Global state").
type Recorder struct {
	events        []TraceEvent
	nextID        int
	executedNodes map[string]bool
	executedEdges map[string]bool
}

// NewRecorder creates an empty Recorder for a new run.
func NewRecorder() *Recorder {
	return &Recorder{
		executedNodes: make(map[string]bool),
		executedEdges: make(map[string]bool),
	}
}

// Emit appends an event, assigning the next monotonic event ID and the
// current wall-clock timestamp (advisory; duplicates are tolerated).
func (r *Recorder) Emit(e TraceEvent) TraceEvent {
	e.EventID = r.nextID
	r.nextID++
	e.Timestamp = time.Now()
	r.events = append(r.events, e)
	return e
}

// MarkNode records a node as visited.
func (r *Recorder) MarkNode(id string) {
	if id != "" {
		r.executedNodes[id] = true
	}
}

// MarkEdge records an edge as definitely taken.
func (r *Recorder) MarkEdge(sourceID, targetID string) {
	r.executedEdges[EdgeKey(sourceID, targetID)] = true
}

// EdgeKey renders an executed edge as "<sourceId>-><targetId>".
func EdgeKey(sourceID, targetID string) string {
	return sourceID + "->" + targetID
}

// Events returns the events appended so far, in order.
func (r *Recorder) Events() []TraceEvent {
	return r.events
}

// Finish builds the final RunResult: a "complete" event is appended, the
// summary is computed from the accumulated events, and the executed
// node/edge sets are materialised as sorted-for-determinism slices.
func (r *Recorder) Finish(mode Mode, cancelled bool) RunResult {
	hadError := false
	errMsg := ""
	totalRows := 0
	var start time.Time
	if len(r.events) > 0 {
		start = r.events[0].Timestamp
	}

	for _, e := range r.events {
		if e.EventType == EventError {
			hadError = true
			if errMsg == "" {
				errMsg = e.ErrorMessage
			}
		}
		if e.RowCount != nil {
			totalRows += *e.RowCount
		}
	}

	completeNote := ""
	if cancelled {
		hadError = false
		completeNote = "cancelled"
	}

	complete := r.Emit(TraceEvent{
		EventType: EventComplete,
		SQLText:   completeNote,
	})

	durationMs := int64(0)
	if !start.IsZero() {
		durationMs = complete.Timestamp.Sub(start).Milliseconds()
	}

	nodes := make([]string, 0, len(r.executedNodes))
	for id := range r.executedNodes {
		nodes = append(nodes, id)
	}
	edges := make([]string, 0, len(r.executedEdges))
	for id := range r.executedEdges {
		edges = append(edges, id)
	}
	sort.Strings(nodes)
	sort.Strings(edges)

	return RunResult{
		RunID: NewRunID(),
		Summary: RunSummary{
			TotalStatements:   countStatements(r.events),
			TotalRowsAffected: totalRows,
			TotalDurationMs:   durationMs,
			HadError:          hadError,
			ErrorMessage:      errMsg,
			Mode:              mode,
		},
		Trace:         r.events,
		ExecutedNodes: nodes,
		ExecutedEdges: edges,
	}
}

func countStatements(events []TraceEvent) int {
	n := 0
	for _, e := range events {
		switch e.EventType {
		case EventStatement, EventDML, EventResultSet, EventSimulated:
			n++
		}
	}
	return n
}
