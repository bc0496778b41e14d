package port

import (
	"context"
	"errors"

	"github.com/dreschagin/health-checker/internal/domain/entity"
)

// ErrNodeNotFound возвращается, если узла нет в кэше
var ErrNodeNotFound = errors.New("node not found")

// NodeCache определяет кэш снимков узлов для read API (Port).
// Это независимая копия, которая не синхронизируется с таблицей агрегатора.
type NodeCache interface {
	// Put сохраняет снимок целиком, заменяя предыдущий
	Put(ctx context.Context, node *entity.Node) error

	// Delete удаляет снимок и сообщает, был ли он в кэше
	Delete(ctx context.Context, id string) (bool, error)

	// List возвращает снимки, отсортированные по id. limit <= 0 означает "без ограничения"
	List(ctx context.Context, offset, limit int) ([]*entity.Node, error)

	// Close освобождает ресурсы
	Close() error
}
