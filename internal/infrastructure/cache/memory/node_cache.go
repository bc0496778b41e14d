// Package memory provides the default in-process node cache for the read API.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/dreschagin/health-checker/internal/domain/entity"
)

// NodeCache guards a map with a RWMutex. Values are copied in and out.
type NodeCache struct {
	mu    sync.RWMutex
	nodes map[string]*entity.Node
}

func NewNodeCache() *NodeCache {
	return &NodeCache{nodes: make(map[string]*entity.Node)}
}

func (c *NodeCache) Put(_ context.Context, node *entity.Node) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nodes[node.ID] = node.Clone()
	return nil
}

func (c *NodeCache) Delete(_ context.Context, id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.nodes[id]
	delete(c.nodes, id)
	return ok, nil
}

func (c *NodeCache) List(_ context.Context, offset, limit int) ([]*entity.Node, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]string, 0, len(c.nodes))
	for id := range c.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if offset >= len(ids) {
		return []*entity.Node{}, nil
	}
	ids = ids[offset:]
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}

	out := make([]*entity.Node, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.nodes[id].Clone())
	}
	return out, nil
}

func (c *NodeCache) Close() error {
	return nil
}
