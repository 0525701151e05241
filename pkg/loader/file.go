package loader

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/sloanyang/gyp/pkg/gyperr"
	"github.com/sloanyang/gyp/pkg/value"
)

// FileReader abstracts unit file access so tests can load from memory
type FileReader interface {
	ReadFile(path string) ([]byte, error)
}

// OSReader reads unit files from the local filesystem
type OSReader struct{}

func (OSReader) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// MemFS is an in-memory FileReader keyed by cleaned path.
// Missing entries fail with fs.ErrNotExist like the real filesystem.
type MemFS map[string]string

func (m MemFS) ReadFile(path string) ([]byte, error) {
	data, ok := m[filepath.Clean(path)]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	return []byte(data), nil
}

// Parse decodes a YAML unit document into a value tree.
// Mapping key order is kept. The top level must be a mapping; an empty
// document is an empty mapping.
func Parse(path string, data []byte) (*value.Map, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &gyperr.ParseError{Path: path, Err: err}
	}
	if doc.Kind == 0 {
		return value.NewMap(), nil
	}

	c := &converter{expanding: make(map[*yaml.Node]bool)}
	v, err := c.convert(&doc)
	if err != nil {
		return nil, &gyperr.ParseError{Path: path, Err: err}
	}
	m, ok := v.(*value.Map)
	if !ok {
		return nil, &gyperr.ParseError{Path: path, Err: fmt.Errorf("top level is a %s, not a mapping", v.Kind())}
	}
	return m, nil
}

// maxAliasNodes bounds how many values alias expansion may produce in one
// document, so nested aliases cannot blow up exponentially
const maxAliasNodes = 100_000

// converter turns a yaml.Node graph into a value tree. Aliases are expanded
// in place; an alias met again while its own target is being expanded is a
// cycle.
type converter struct {
	expanding map[*yaml.Node]bool
	depth     int // aliases currently being expanded
	expanded  int
}

func (c *converter) convert(n *yaml.Node) (value.Value, error) {
	if c.depth > 0 {
		c.expanded++
		if c.expanded > maxAliasNodes {
			return nil, fmt.Errorf("line %d: alias expansion exceeds %d values", n.Line, maxAliasNodes)
		}
	}

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return value.NewMap(), nil
		}
		return c.convert(n.Content[0])

	case yaml.MappingNode:
		m := value.NewMap()
		for i := 0; i+1 < len(n.Content); i += 2 {
			keyNode, valNode := n.Content[i], n.Content[i+1]
			if keyNode.Kind != yaml.ScalarNode || keyNode.ShortTag() != "!!str" {
				return nil, fmt.Errorf("line %d: mapping key must be a string", keyNode.Line)
			}
			if m.Has(keyNode.Value) {
				return nil, fmt.Errorf("line %d: duplicate key %q", keyNode.Line, keyNode.Value)
			}
			v, err := c.convert(valNode)
			if err != nil {
				return nil, err
			}
			m.Set(keyNode.Value, v)
		}
		return m, nil

	case yaml.SequenceNode:
		l := value.NewList()
		for _, item := range n.Content {
			v, err := c.convert(item)
			if err != nil {
				return nil, err
			}
			l.Append(v)
		}
		return l, nil

	case yaml.AliasNode:
		if n.Alias == nil {
			return nil, fmt.Errorf("line %d: dangling alias", n.Line)
		}
		if c.expanding[n.Alias] {
			return nil, fmt.Errorf("line %d: alias *%s refers to itself", n.Line, n.Value)
		}
		c.expanding[n.Alias] = true
		c.depth++
		v, err := c.convert(n.Alias)
		c.depth--
		delete(c.expanding, n.Alias)
		return v, err

	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!null":
			return nil, fmt.Errorf("line %d: null values are not supported", n.Line)
		case "!!int":
			if i, err := strconv.ParseInt(n.Value, 0, 64); err == nil {
				return value.Int(i), nil
			}
			// out of range for int64, keep the literal text
			return value.String(n.Value), nil
		default:
			return value.String(n.Value), nil
		}
	}
	return nil, fmt.Errorf("line %d: unsupported YAML node kind %d", n.Line, n.Kind)
}
