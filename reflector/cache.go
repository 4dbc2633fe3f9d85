package reflector

import (
	"maps"
	"slices"
)

// resourceCache maps cache keys to the latest admitted item. It is mutated
// exclusively by the run loop and snapshot-read by observers; all access
// goes through the owning Reflector's mutex, so the cache itself carries
// no locking.
type resourceCache[T Object] struct {
	items map[string]T
}

func newResourceCache[T Object]() *resourceCache[T] {
	return &resourceCache[T]{items: make(map[string]T)}
}

func (c *resourceCache[T]) get(key string) (T, bool) {
	obj, ok := c.items[key]
	return obj, ok
}

func (c *resourceCache[T]) set(key string, obj T) {
	c.items[key] = obj
}

func (c *resourceCache[T]) delete(key string) {
	delete(c.items, key)
}

func (c *resourceCache[T]) len() int {
	return len(c.items)
}

// keys returns the cache keys sorted, so relist diffs and snapshots walk
// the cache in a deterministic order.
func (c *resourceCache[T]) keys() []string {
	return slices.Sorted(maps.Keys(c.items))
}

// snapshot returns the cached items sorted by key.
func (c *resourceCache[T]) snapshot() []T {
	out := make([]T, 0, len(c.items))
	for _, key := range c.keys() {
		out = append(out, c.items[key])
	}
	return out
}
