package usecase

import (
	"context"
	"fmt"

	"github.com/dreschagin/health-checker/internal/application/port"
	"github.com/dreschagin/health-checker/internal/domain/entity"
	"github.com/dreschagin/health-checker/pkg/logger"
)

// MaxListLimit ограничивает размер одной страницы
const MaxListLimit = 1000

// ListNodesUseCase читает кэш узлов постранично
type ListNodesUseCase struct {
	cache  port.NodeCache
	logger *logger.Logger
}

// NewListNodesUseCase создает новый use case
func NewListNodesUseCase(cache port.NodeCache, logger *logger.Logger) *ListNodesUseCase {
	return &ListNodesUseCase{
		cache:  cache,
		logger: logger,
	}
}

// Execute возвращает узлы, отсортированные по id. limit == 0 означает MaxListLimit.
func (uc *ListNodesUseCase) Execute(ctx context.Context, offset, limit int) ([]*entity.Node, error) {
	if offset < 0 || limit < 0 {
		return nil, ErrInvalidPage
	}
	if limit == 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}

	nodes, err := uc.cache.List(ctx, offset, limit)
	if err != nil {
		uc.logger.Error("Failed to list nodes", err)
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}

	uc.logger.Debug("Listed nodes", "count", len(nodes), "offset", offset)

	return nodes, nil
}
