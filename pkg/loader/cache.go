package loader

import (
	"slices"

	"github.com/sloanyang/gyp/pkg/model"
)

// Cache holds the units loaded during one resolution run, keyed by
// normalized path. It is created by the caller and dropped with the run.
type Cache struct {
	units map[string]*model.Unit
	order []string
	files []string
	seen  map[string]bool
}

// NewCache creates an empty cache
func NewCache() *Cache {
	return &Cache{
		units: make(map[string]*model.Unit),
		seen:  make(map[string]bool),
	}
}

// Get returns the unit loaded from path
func (c *Cache) Get(path string) (*model.Unit, bool) {
	u, ok := c.units[model.Normalize(path)]
	return u, ok
}

// Len returns the number of loaded units
func (c *Cache) Len() int { return len(c.order) }

// Units returns the loaded units in load order
func (c *Cache) Units() []*model.Unit {
	out := make([]*model.Unit, 0, len(c.order))
	for _, p := range c.order {
		out = append(out, c.units[p])
	}
	return out
}

// Files returns every file the loader tried to read, units and includes, in order
func (c *Cache) Files() []string {
	return slices.Clone(c.files)
}

func (c *Cache) add(u *model.Unit) {
	c.units[u.Path] = u
	c.order = append(c.order, u.Path)
}

func (c *Cache) recordFile(path string) {
	if c.seen[path] {
		return
	}
	c.seen[path] = true
	c.files = append(c.files, path)
}
