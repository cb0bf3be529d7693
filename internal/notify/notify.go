package notify

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/faideww/catchlog/internal/logging"
)

type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

// Toast is a short user-facing notice.
type Toast struct {
	Title       string
	Description string
	Variant     Variant
	// Species and Rarity are optional and only decorate the notice.
	Species string
	Rarity  string
}

// Sink delivers toasts. Delivery is best effort; failures are logged by
// the sink and never reach the caller.
type Sink interface {
	Notify(ctx context.Context, t Toast)
}

type LogSink struct {
	log *log.Logger
}

func NewLogSink(logger *log.Logger) *LogSink {
	if logger == nil {
		logger = logging.Discard()
	}
	return &LogSink{log: logger}
}

func (s *LogSink) Notify(_ context.Context, t Toast) {
	if t.Variant == VariantDestructive {
		s.log.Warn(t.Title, "detail", t.Description)
		return
	}
	s.log.Info(t.Title, "detail", t.Description, "species", t.Species)
}

// Multi fans a toast out to every sink in order.
type Multi []Sink

func (m Multi) Notify(ctx context.Context, t Toast) {
	for _, s := range m {
		if s != nil {
			s.Notify(ctx, t)
		}
	}
}

// Discard drops every toast.
type Discard struct{}

func (Discard) Notify(context.Context, Toast) {}
