package receivables

import (
	"log/slog"
)

// Observer receives structured pipeline diagnostics. Implementations must be
// safe for concurrent use.
type Observer interface {
	FallbackTriggered(model, from, to string, err error)
	LookupIssued(relation string, ids int)
	RowsProduced(kind string, rows int)
	MalformedValue(model string, id int64, field string)
}

// NopObserver discards every event.
type NopObserver struct{}

func (NopObserver) FallbackTriggered(string, string, string, error) {}
func (NopObserver) LookupIssued(string, int)                       {}
func (NopObserver) RowsProduced(string, int)                       {}
func (NopObserver) MalformedValue(string, int64, string)           {}

// LogObserver writes events to a slog.Logger.
type LogObserver struct {
	Logger *slog.Logger
}

// NewLogObserver wraps logger, defaulting to slog.Default.
func NewLogObserver(logger *slog.Logger) LogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return LogObserver{Logger: logger.With(slog.String("component", "receivables"))}
}

func (o LogObserver) FallbackTriggered(model, from, to string, err error) {
	o.Logger.Warn("schema fallback",
		slog.String("model", model),
		slog.String("from", from),
		slog.String("to", to),
		slog.Any("error", err),
	)
}

func (o LogObserver) LookupIssued(relation string, ids int) {
	o.Logger.Debug("batched lookup", slog.String("relation", relation), slog.Int("ids", ids))
}

func (o LogObserver) RowsProduced(kind string, rows int) {
	o.Logger.Info("rows produced", slog.String("kind", kind), slog.Int("rows", rows))
}

func (o LogObserver) MalformedValue(model string, id int64, field string) {
	o.Logger.Debug("malformed value", slog.String("model", model), slog.Int64("id", id), slog.String("field", field))
}

// MultiObserver fans every event out to each member.
type MultiObserver []Observer

func (m MultiObserver) FallbackTriggered(model, from, to string, err error) {
	for _, o := range m {
		o.FallbackTriggered(model, from, to, err)
	}
}

func (m MultiObserver) LookupIssued(relation string, ids int) {
	for _, o := range m {
		o.LookupIssued(relation, ids)
	}
}

func (m MultiObserver) RowsProduced(kind string, rows int) {
	for _, o := range m {
		o.RowsProduced(kind, rows)
	}
}

func (m MultiObserver) MalformedValue(model string, id int64, field string) {
	for _, o := range m {
		o.MalformedValue(model, id, field)
	}
}
