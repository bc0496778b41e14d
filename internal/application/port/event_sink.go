package port

import (
	"context"

	"github.com/dreschagin/health-checker/internal/domain/event"
)

// EventSink определяет сторону продюсера шины событий (Port).
// Send может блокироваться, пока шина заполнена.
type EventSink interface {
	Send(ctx context.Context, ev event.Event) error
}
