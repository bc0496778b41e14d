package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/dreschagin/health-checker/internal/application/port"
	"github.com/dreschagin/health-checker/internal/domain/event"
	"github.com/dreschagin/health-checker/pkg/logger"
)

// RemoveNodeUseCase снимает узел с мониторинга
type RemoveNodeUseCase struct {
	cache  port.NodeCache
	sink   port.EventSink
	logger *logger.Logger
}

// NewRemoveNodeUseCase создает новый use case
func NewRemoveNodeUseCase(cache port.NodeCache, sink port.EventSink, logger *logger.Logger) *RemoveNodeUseCase {
	return &RemoveNodeUseCase{
		cache:  cache,
		sink:   sink,
		logger: logger,
	}
}

// Execute ставит Offline в шину, затем удаляет узел из кэша чтения.
// port.ErrNodeNotFound означает, что кэш узла не знал; событие все равно отправлено.
func (uc *RemoveNodeUseCase) Execute(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: node id is required", ErrInvalidNode)
	}

	if err := uc.sink.Send(ctx, event.Offline{Target: event.NodeRef(id)}); err != nil {
		return sendError(err)
	}

	found, err := uc.cache.Delete(ctx, id)
	if err != nil {
		uc.logger.Error("Failed to delete node from cache", err, "node_id", id)
		return fmt.Errorf("failed to delete node %s: %w", id, err)
	}
	if !found {
		return port.ErrNodeNotFound
	}

	uc.logger.Info("Node removed", "node_id", id)

	return nil
}
