package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dreschagin/health-checker/internal/domain/entity"
)

// DefaultKey is the hash holding node snapshots, one field per node id.
const DefaultKey = "health:nodes"

// Options configures the Redis connection.
type Options struct {
	Host         string
	Port         string
	Password     string
	DB           int
	Key          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NodeCache implements port.NodeCache on a Redis hash
type NodeCache struct {
	client redis.UniversalClient
	key    string
}

// NewNodeCache connects to Redis and verifies the connection
func NewNodeCache(opts Options) (*NodeCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", opts.Host, opts.Port),
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     opts.PoolSize,
		MinIdleConns: opts.MinIdleConns,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		MaxRetries:   3,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewNodeCacheWithClient(client, opts.Key), nil
}

// NewNodeCacheWithClient wraps an existing client
func NewNodeCacheWithClient(client redis.UniversalClient, key string) *NodeCache {
	if key == "" {
		key = DefaultKey
	}
	return &NodeCache{client: client, key: key}
}

// Put replaces the stored snapshot
func (c *NodeCache) Put(ctx context.Context, node *entity.Node) error {
	data, err := json.Marshal(node)
	if err != nil {
		return fmt.Errorf("failed to marshal node: %w", err)
	}

	if err := c.client.HSet(ctx, c.key, node.ID, data).Err(); err != nil {
		return fmt.Errorf("failed to store node %s: %w", node.ID, err)
	}

	return nil
}

// Delete removes a snapshot and reports whether it existed
func (c *NodeCache) Delete(ctx context.Context, id string) (bool, error) {
	removed, err := c.client.HDel(ctx, c.key, id).Result()
	if err != nil {
		return false, fmt.Errorf("failed to delete node %s: %w", id, err)
	}
	return removed > 0, nil
}

// List returns snapshots sorted by id
func (c *NodeCache) List(ctx context.Context, offset, limit int) ([]*entity.Node, error) {
	values, err := c.client.HGetAll(ctx, c.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read nodes: %w", err)
	}

	ids := make([]string, 0, len(values))
	for id := range values {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	ids = page(ids, offset, limit)
	nodes := make([]*entity.Node, 0, len(ids))
	for _, id := range ids {
		var node entity.Node
		if err := json.Unmarshal([]byte(values[id]), &node); err != nil {
			return nil, fmt.Errorf("failed to unmarshal node %s: %w", id, err)
		}
		nodes = append(nodes, &node)
	}

	return nodes, nil
}

// Close closes the Redis connection
func (c *NodeCache) Close() error {
	return c.client.Close()
}

func page(ids []string, offset, limit int) []string {
	if offset >= len(ids) {
		return nil
	}
	ids = ids[offset:]
	if limit > 0 && limit < len(ids) {
		ids = ids[:limit]
	}
	return ids
}
