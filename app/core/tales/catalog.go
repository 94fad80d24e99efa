// Package tales holds the branching story library and walks a reader through one tale.
package tales

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/pandatales/pandatales/app/core/settings"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var embeddedCatalog []byte

var (
	// ErrUnknownTale is returned when a tale id is not in the catalog
	ErrUnknownTale = errors.New("unknown tale")
	// ErrInvalidCatalog wraps every structural problem found by Validate
	ErrInvalidCatalog = errors.New("invalid tale catalog")
)

// Choice is one branch offered at a node
type Choice struct {
	Label string `yaml:"label"`
	Next  string `yaml:"next"`
}

// Node is one page of a tale. Ending nodes offer no choices.
type Node struct {
	Text    string   `yaml:"text"`
	Choices []Choice `yaml:"choices,omitempty"`
	Ending  bool     `yaml:"ending,omitempty"`
}

// Tale is a directed graph of nodes entered at Start
type Tale struct {
	ID       string          `yaml:"id"`
	Category string          `yaml:"category"`
	Title    string          `yaml:"title"`
	Start    string          `yaml:"start"`
	Nodes    map[string]Node `yaml:"nodes"`
}

// Node returns the node with the given id
func (t *Tale) Node(id string) (Node, bool) {
	n, ok := t.Nodes[id]
	return n, ok
}

// Catalog is the immutable, validated tale library
type Catalog struct {
	version *semver.Version
	tales   []*Tale
	byID    map[string]*Tale
}

type catalogFile struct {
	Version string  `yaml:"version"`
	Tales   []*Tale `yaml:"tales"`
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the catalog compiled into the binary
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Load(embeddedCatalog)
	})
	return defaultCatalog, defaultErr
}

// Load parses and validates a YAML catalog document
func Load(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	v, err := semver.NewVersion(file.Version)
	if err != nil {
		return nil, fmt.Errorf("%w: version %q: %v", ErrInvalidCatalog, file.Version, err)
	}

	c := &Catalog{
		version: v,
		tales:   file.Tales,
		byID:    make(map[string]*Tale, len(file.Tales)),
	}
	for _, t := range file.Tales {
		if _, dup := c.byID[t.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate tale id %q", ErrInvalidCatalog, t.ID)
		}
		c.byID[t.ID] = t
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the graph of every tale:
//   - the start node exists
//   - every choice points at an existing node
//   - ending nodes have no choices and other nodes have at least one
//   - at least one ending is reachable from the start
func (c *Catalog) Validate() error {
	if len(c.tales) == 0 {
		return fmt.Errorf("%w: no tales", ErrInvalidCatalog)
	}

	var problems []string
	for _, t := range c.tales {
		if strings.TrimSpace(t.ID) == "" {
			problems = append(problems, "tale without id")
			continue
		}
		if strings.TrimSpace(t.Title) == "" {
			problems = append(problems, fmt.Sprintf("%s: missing title", t.ID))
		}
		if _, ok := t.Nodes[t.Start]; !ok {
			problems = append(problems, fmt.Sprintf("%s: start node %q not found", t.ID, t.Start))
			continue
		}

		for _, id := range sortedNodeIDs(t) {
			n := t.Nodes[id]
			switch {
			case n.Ending && len(n.Choices) > 0:
				problems = append(problems, fmt.Sprintf("%s/%s: ending node has choices", t.ID, id))
			case !n.Ending && len(n.Choices) == 0:
				problems = append(problems, fmt.Sprintf("%s/%s: dead end without ending", t.ID, id))
			}
			for _, ch := range n.Choices {
				if _, ok := t.Nodes[ch.Next]; !ok {
					problems = append(problems, fmt.Sprintf("%s/%s: choice %q points at missing node %q", t.ID, id, ch.Label, ch.Next))
				}
			}
		}

		if !reachesEnding(t) {
			problems = append(problems, fmt.Sprintf("%s: no ending reachable from %q", t.ID, t.Start))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidCatalog, strings.Join(problems, "; "))
	}
	return nil
}

// reachesEnding walks the graph breadth first from the start node
func reachesEnding(t *Tale) bool {
	seen := map[string]bool{t.Start: true}
	queue := []string{t.Start}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		n := t.Nodes[id]
		if n.Ending {
			return true
		}
		for _, ch := range n.Choices {
			if _, ok := t.Nodes[ch.Next]; ok && !seen[ch.Next] {
				seen[ch.Next] = true
				queue = append(queue, ch.Next)
			}
		}
	}
	return false
}

func sortedNodeIDs(t *Tale) []string {
	ids := make([]string, 0, len(t.Nodes))
	for id := range t.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Version returns the catalog content version
func (c *Catalog) Version() *semver.Version {
	return c.version
}

// Get returns the tale with the given id
func (c *Catalog) Get(id string) (*Tale, error) {
	t, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTale, id)
	}
	return t, nil
}

// Tales returns the tales in library order
func (c *Catalog) Tales() []*Tale {
	out := make([]*Tale, len(c.tales))
	copy(out, c.tales)
	return out
}

// IDs returns the tale ids in library order
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.tales))
	for i, t := range c.tales {
		ids[i] = t.ID
	}
	return ids
}

// Len returns the number of tales
func (c *Catalog) Len() int {
	return len(c.tales)
}

// PublishTotal records the size of the library so the all-read achievement
// has something to compare against.
func (c *Catalog) PublishTotal(ctx context.Context, s *settings.Settings) error {
	return s.SetStoriesTotal(ctx, c.Len())
}
