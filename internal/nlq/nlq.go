package nlq

import (
	"context"

	"github.com/askdb/askdb/internal/catalog"
)

// ContextProvider supplies schema context text for a question, restricted
// to the given resources. Implementations must never widen the resource
// set they were handed.
type ContextProvider interface {
	SchemaContext(ctx context.Context, question string, resources []string) (string, error)
}

// CatalogProvider renders schema context straight from the closed catalog.
type CatalogProvider struct {
	cat *catalog.Catalog
}

func NewCatalogProvider(cat *catalog.Catalog) *CatalogProvider {
	return &CatalogProvider{cat: cat}
}

func (p *CatalogProvider) SchemaContext(_ context.Context, _ string, resources []string) (string, error) {
	return p.cat.SchemaDoc(resources), nil
}
