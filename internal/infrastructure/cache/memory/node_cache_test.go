package memory

import (
	"context"
	"testing"

	"github.com/dreschagin/health-checker/internal/domain/entity"
)

func TestNodeCache_PutListDelete(t *testing.T) {
	ctx := context.Background()
	cache := NewNodeCache()

	for _, id := range []string{"c", "a", "b"} {
		if err := cache.Put(ctx, &entity.Node{ID: id, DiskPer: 1}); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}
	// replaced wholesale
	if err := cache.Put(ctx, &entity.Node{ID: "a", DiskPer: 50}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	tests := []struct {
		name   string
		offset int
		limit  int
		want   []string
	}{
		{name: "all", want: []string{"a", "b", "c"}},
		{name: "limit", limit: 2, want: []string{"a", "b"}},
		{name: "offset", offset: 1, limit: 5, want: []string{"b", "c"}},
		{name: "past end", offset: 3, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes, err := cache.List(ctx, tt.offset, tt.limit)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(nodes) != len(tt.want) {
				t.Fatalf("got %d nodes, want %d", len(nodes), len(tt.want))
			}
			for i, id := range tt.want {
				if nodes[i].ID != id {
					t.Fatalf("node %d = %s, want %s", i, nodes[i].ID, id)
				}
			}
		})
	}

	nodes, _ := cache.List(ctx, 0, 1)
	if nodes[0].DiskPer != 50 {
		t.Fatalf("snapshot was not replaced: %+v", nodes[0])
	}
	nodes[0].DiskPer = 99
	again, _ := cache.List(ctx, 0, 1)
	if again[0].DiskPer != 50 {
		t.Fatalf("List must return copies")
	}

	found, _ := cache.Delete(ctx, "a")
	if !found {
		t.Fatalf("Delete(a) found = false")
	}
	found, _ = cache.Delete(ctx, "a")
	if found {
		t.Fatalf("second Delete(a) found = true")
	}
}
