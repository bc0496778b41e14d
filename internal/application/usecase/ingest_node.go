package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dreschagin/health-checker/internal/application/bus"
	"github.com/dreschagin/health-checker/internal/application/dto"
	"github.com/dreschagin/health-checker/internal/application/port"
	"github.com/dreschagin/health-checker/internal/domain/entity"
	"github.com/dreschagin/health-checker/internal/domain/event"
	"github.com/dreschagin/health-checker/internal/domain/service"
	"github.com/dreschagin/health-checker/pkg/logger"
)

// IngestNodeUseCase принимает снимок узла от агента
type IngestNodeUseCase struct {
	cache  port.NodeCache
	sink   port.EventSink
	logger *logger.Logger
	now    func() time.Time
}

// NewIngestNodeUseCase создает новый use case
func NewIngestNodeUseCase(cache port.NodeCache, sink port.EventSink, logger *logger.Logger) *IngestNodeUseCase {
	return &IngestNodeUseCase{
		cache:  cache,
		sink:   sink,
		logger: logger,
		now:    time.Now,
	}
}

// Execute проставляет время получения, классифицирует снимок, обновляет
// кэш чтения и ставит Heartbeat в шину. Возвращается только после того,
// как событие принято шиной.
func (uc *IngestNodeUseCase) Execute(ctx context.Context, req *dto.UpsertNodeRequest) (*entity.Node, error) {
	if req == nil {
		return nil, fmt.Errorf("%w: empty request", ErrInvalidNode)
	}

	node := req.ToEntity()
	if err := node.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNode, err)
	}

	now := uc.now()
	node.Touch(now)

	severity, msg := service.EvaluateNode(node, now)
	node.StatusMsg = msg

	// кэш чтения допускает расхождение с агрегатором, поэтому сбой не блокирует событие
	if err := uc.cache.Put(ctx, node); err != nil {
		uc.logger.Error("Failed to update node cache", err, "node_id", node.ID)
	}

	if err := uc.sink.Send(ctx, event.Heartbeat{Finding: event.NewNodeFinding(node, severity)}); err != nil {
		return nil, sendError(err)
	}

	uc.logger.Debug("Node snapshot accepted", "node_id", node.ID, "severity", severity)

	return node, nil
}

func sendError(err error) error {
	if errors.Is(err, bus.ErrClosed) || errors.Is(err, bus.ErrReleased) {
		return ErrShuttingDown
	}
	return fmt.Errorf("failed to enqueue event: %w", err)
}
