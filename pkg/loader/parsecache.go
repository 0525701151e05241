package loader

import (
	"crypto/sha256"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/sloanyang/gyp/pkg/value"
)

type parseKey struct {
	path string
	sum  [sha256.Size]byte
}

// ParseCache keeps parsed trees across resolution runs, keyed by path and
// content, so watch mode only re-parses files that changed. Trees are
// cloned on the way in and out since resolution mutates them.
type ParseCache struct {
	trees *lru.Cache[parseKey, *value.Map]
}

// NewParseCache creates a cache holding at most size trees
func NewParseCache(size int) (*ParseCache, error) {
	trees, err := lru.New[parseKey, *value.Map](size)
	if err != nil {
		return nil, fmt.Errorf("creating parse cache: %w", err)
	}
	return &ParseCache{trees: trees}, nil
}

// Len returns the number of cached trees
func (c *ParseCache) Len() int { return c.trees.Len() }

func (c *ParseCache) parse(path string, data []byte) (tree *value.Map, hit bool, err error) {
	key := parseKey{path: path, sum: sha256.Sum256(data)}
	if cached, ok := c.trees.Get(key); ok {
		return cached.Clone().(*value.Map), true, nil
	}
	tree, err = Parse(path, data)
	if err != nil {
		return nil, false, err
	}
	c.trees.Add(key, tree.Clone().(*value.Map))
	return tree, false, nil
}
