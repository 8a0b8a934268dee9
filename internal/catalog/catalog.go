package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrNotFound = errors.New("catalog: resource not found")

// Column describes one queryable column of a resource.
type Column struct {
	Name        string
	Type        string
	Description string
	// Values enumerates the closed vocabulary for status-like columns.
	Values []string
}

// Resource is a named, access-controllable unit of queryable data. The set of
// resources is fixed at construction and never changes at runtime.
type Resource struct {
	Name        string
	Description string
	Columns     []Column
	// Relations documents join paths, e.g. "orders.client_id -> clients.id".
	Relations []string
	// Synonyms are question keywords that identify this resource in free
	// text, used by the scope pre-check. Matching is accent-folded, so
	// entries are written lowercase without diacritics.
	Synonyms []string
}

type Catalog struct {
	resources []Resource
	byName    map[string]Resource
}

func New(resources ...Resource) (*Catalog, error) {
	if len(resources) == 0 {
		return nil, fmt.Errorf("at least one resource is required")
	}
	byName := make(map[string]Resource, len(resources))
	ordered := make([]Resource, 0, len(resources))
	for _, resource := range resources {
		name := strings.ToLower(strings.TrimSpace(resource.Name))
		if name == "" {
			return nil, fmt.Errorf("resource name is required")
		}
		if _, exists := byName[name]; exists {
			return nil, fmt.Errorf("duplicate resource %q", name)
		}
		resource.Name = name
		byName[name] = resource
		ordered = append(ordered, resource)
	}
	return &Catalog{resources: ordered, byName: byName}, nil
}

func (c *Catalog) Has(name string) bool {
	_, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

func (c *Catalog) Get(name string) (Resource, error) {
	resource, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Resource{}, ErrNotFound
	}
	return resource, nil
}

func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.resources))
	for _, resource := range c.resources {
		names = append(names, resource.Name)
	}
	sort.Strings(names)
	return names
}

func (c *Catalog) Resources() []Resource {
	out := make([]Resource, len(c.resources))
	copy(out, c.resources)
	return out
}

// SchemaDoc renders the schema description for the named resources only.
// Resources outside the requested set are never mentioned, so instructions
// built from this text cannot leak excluded schema.
func (c *Catalog) SchemaDoc(names []string) string {
	requested := make(map[string]struct{}, len(names))
	for _, name := range names {
		requested[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
	}

	var b strings.Builder
	b.WriteString("Available tables (no others exist):\n")
	included := make(map[string]struct{}, len(names))
	for _, resource := range c.resources {
		if _, ok := requested[resource.Name]; !ok {
			continue
		}
		included[resource.Name] = struct{}{}
		fmt.Fprintf(&b, "- %s: %s\n", resource.Name, resource.Description)
		for _, column := range resource.Columns {
			fmt.Fprintf(&b, "  - %s (%s): %s", column.Name, column.Type, column.Description)
			if len(column.Values) > 0 {
				fmt.Fprintf(&b, " [values: %s]", strings.Join(column.Values, ", "))
			}
			b.WriteString("\n")
		}
	}
	var relations []string
	for _, resource := range c.resources {
		if _, ok := included[resource.Name]; !ok {
			continue
		}
		for _, relation := range resource.Relations {
			if relationInScope(relation, included) {
				relations = append(relations, relation)
			}
		}
	}
	if len(relations) > 0 {
		b.WriteString("Relations:\n")
		for _, relation := range relations {
			fmt.Fprintf(&b, "- %s\n", relation)
		}
	}
	return b.String()
}

// relationInScope reports whether every table mentioned in a relation spec is
// part of the included set. Relations touching excluded resources are dropped
// from the rendered schema.
func relationInScope(relation string, included map[string]struct{}) bool {
	fields := strings.FieldsFunc(relation, func(r rune) bool {
		return r == ' ' || r == '-' || r == '>'
	})
	for _, field := range fields {
		table, _, found := strings.Cut(field, ".")
		if !found {
			continue
		}
		if _, ok := included[strings.ToLower(table)]; !ok {
			return false
		}
	}
	return true
}
