package export

import (
	"context"
	"log/slog"
	"time"

	"github.com/teslashibe/go-callflow/pkg/callflow"
	"github.com/teslashibe/go-callflow/pkg/session"
)

// Exporter writes sessions somewhere.
type Exporter interface {
	Export(ctx context.Context, s *session.Session) (string, error)
}

// Loader reads sessions.
type Loader interface {
	Load(ctx context.Context, callID string) (*session.Session, bool, error)
}

// Observer exports each call once it completes. Exports run in their own
// goroutine; failures are logged and never reach the call.
type Observer struct {
	exporter Exporter
	loader   Loader
	timeout  time.Duration
	logger   *slog.Logger

	// done, when set, receives the outcome of each export.
	done chan<- error
}

// NewObserver creates a completion observer.
func NewObserver(exporter Exporter, loader Loader, logger *slog.Logger) *Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Observer{
		exporter: exporter,
		loader:   loader,
		timeout:  time.Minute,
		logger:   logger.With("component", "export"),
	}
}

// OnEvent implements callflow.Observer.
func (o *Observer) OnEvent(e callflow.Event) {
	if e.Type != callflow.EventCompleted {
		return
	}
	go o.export(e.CallID)
}

func (o *Observer) export(callID string) {
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	err := o.run(ctx, callID)
	if err != nil {
		o.logger.Warn("export failed", "call_id", callID, "error", err)
	}
	if o.done != nil {
		o.done <- err
	}
}

func (o *Observer) run(ctx context.Context, callID string) error {
	s, ok, err := o.loader.Load(ctx, callID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	_, err = o.exporter.Export(ctx, s)
	return err
}

var _ callflow.Observer = (*Observer)(nil)
