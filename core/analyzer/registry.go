// Package analyzer has the category analyzers and the registry that maps category ids to them.
package analyzer

import (
	"fmt"

	"github.com/huangsam/qualgate/internal/contract"
	"github.com/huangsam/qualgate/schema"
)

// Registry holds analyzers in registration order.
type Registry struct {
	order     []schema.CategoryID
	analyzers map[schema.CategoryID]contract.Analyzer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{analyzers: make(map[schema.CategoryID]contract.Analyzer)}
}

// Register adds an analyzer. A category can only be registered once.
func (r *Registry) Register(a contract.Analyzer) error {
	id := a.Category()
	if _, ok := r.analyzers[id]; ok {
		return fmt.Errorf("analyzer for category %q already registered", id)
	}
	r.order = append(r.order, id)
	r.analyzers[id] = a
	return nil
}

// Get returns the analyzer registered for id.
func (r *Registry) Get(id schema.CategoryID) (contract.Analyzer, bool) {
	a, ok := r.analyzers[id]
	return a, ok
}

// Keys returns the registered categories in registration order.
func (r *Registry) Keys() []schema.CategoryID {
	out := make([]schema.CategoryID, len(r.order))
	copy(out, r.order)
	return out
}

// TotalWeight is the sum of every registered analyzer's max score.
func (r *Registry) TotalWeight() float64 {
	total := 0.0
	for _, id := range r.order {
		total += r.analyzers[id].MaxScore()
	}
	return total
}

// DefaultRegistry returns a registry with all built-in analyzers using the default weights.
func DefaultRegistry() *Registry {
	w := schema.DefaultCategoryWeights
	r := NewRegistry()
	for _, a := range []contract.Analyzer{
		NewStructureAnalyzer(w[schema.StructureCategory]),
		NewStyleAnalyzer(w[schema.StyleCategory]),
		NewDependenciesAnalyzer(w[schema.DependenciesCategory]),
		NewSecurityAnalyzer(w[schema.SecurityCategory]),
		NewPerformanceAnalyzer(w[schema.PerformanceCategory]),
	} {
		_ = r.Register(a)
	}
	return r
}
