package executor

import (
	"time"

	"github.com/sheenazien8/sqpool/builder"
	"github.com/sheenazien8/sqpool/logger"
)

// EventKind identifies a pool or statement lifecycle event
type EventKind int

const (
	// EventEnqueue: a connection was requested while the pool was saturated,
	// so the caller waits for a release.
	EventEnqueue EventKind = iota + 1
	EventAcquire
	EventRelease
	// EventQuery: a statement completed successfully.
	EventQuery
	// EventError: acquiring a connection, beginning a transaction or running
	// a statement failed.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventEnqueue:
		return "enqueue"
	case EventAcquire:
		return "acquire"
	case EventRelease:
		return "release"
	case EventQuery:
		return "query"
	case EventError:
		return "error"
	}
	return "unknown"
}

// Event is delivered to observers synchronously, on the goroutine that
// caused it
type Event struct {
	Kind EventKind
	At   time.Time

	// TxID groups the events of one ExecuteTransaction call; empty outside
	// transactions.
	TxID string

	// Statement and Duration are set for EventQuery and for EventError
	// raised by a statement.
	Statement *builder.Statement
	Duration  time.Duration
	Outcome   *QueryOutcome
	Err       error
}

// Observer receives pool and statement events. Observe must not block for
// long: it runs inline with the database call.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(ev Event) { f(ev) }

// Observers fans an event out to each observer in order
type Observers []Observer

func (o Observers) Observe(ev Event) {
	for _, obs := range o {
		obs.Observe(ev)
	}
}

// LogObserver writes every event to the package logger
type LogObserver struct{}

func (LogObserver) Observe(ev Event) {
	fields := map[string]any{"event": ev.Kind.String()}
	if ev.TxID != "" {
		fields["tx"] = ev.TxID
	}
	if ev.Statement != nil {
		fields["query"] = ev.Statement.SQL()
		fields["args"] = ev.Statement.NumArgs()
		fields["duration"] = ev.Duration.String()
	}
	if ev.Outcome != nil {
		fields["affectedRows"] = ev.Outcome.AffectedRows
		fields["length"] = ev.Outcome.Length
	}

	if ev.Err != nil {
		fields["error"] = ev.Err.Error()
		logger.Error("Database operation failed", fields)
		return
	}
	logger.Debug("Database event", fields)
}
