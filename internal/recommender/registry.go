package recommender

import (
	"fmt"

	"github.com/slavkostrov/playlist-selection/internal/errs"
)

// Constructor builds an untrained recommender with the given neighbour
// count and projection dimensionality.
type Constructor func(k, components int) Recommender

var registry = map[string]Constructor{
	"knn": func(k, components int) Recommender { return NewKnn(k, components) },
}

// NewFromClass instantiates a recommender by its registered class name.
func NewFromClass(class string, k, components int) (Recommender, error) {
	ctor, ok := registry[class]
	if !ok {
		return nil, fmt.Errorf("%w: unknown recommender class %q", errs.ErrValidation, class)
	}
	return ctor(k, components), nil
}
