package recommender

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/slavkostrov/playlist-selection/internal/errs"
	"github.com/slavkostrov/playlist-selection/internal/features"
)

const (
	// DefaultNeighbors is how many tracks a query row contributes.
	DefaultNeighbors = 5

	// DefaultComponents is the projection dimensionality the index is
	// trained with. Clamped down when the training set is smaller.
	DefaultComponents = 141

	// selfMatchEpsilon marks a neighbour as the query track itself.
	selfMatchEpsilon = 1e-9
)

// Recommender maps query feature rows to recommended track ids.
type Recommender interface {
	Train(rows []features.Row) error
	Recommend(rows []features.Row) ([]string, error)
}

// KnnRecommender is an exact nearest-neighbour index over encoded and
// projected feature vectors, Manhattan distance.
type KnnRecommender struct {
	k          int
	components int

	enc  *encoder
	proj *pca
	data *mat.Dense
	ids  []string
}

// NewKnn creates an untrained index returning k neighbours per query row.
func NewKnn(k, components int) *KnnRecommender {
	if k <= 0 {
		k = DefaultNeighbors
	}
	if components <= 0 {
		components = DefaultComponents
	}
	return &KnnRecommender{k: k, components: components}
}

// Train fits the encoding pipeline and rebuilds the index over rows. The
// previous row-to-track mapping is discarded. Fails fast when the corpus
// cannot yield k neighbours after self-exclusion.
func (r *KnnRecommender) Train(rows []features.Row) error {
	if len(rows) < r.k+1 {
		return fmt.Errorf("%w: need at least %d tracks to index, got %d",
			errs.ErrValidation, r.k+1, len(rows))
	}

	enc := &encoder{}
	enc.fit(rows)
	if enc.width() == 0 {
		return fmt.Errorf("%w: no feature columns in training data", errs.ErrValidation)
	}

	encoded := enc.transform(rows)
	proj, err := fitPCA(encoded, r.components)
	if err != nil {
		return err
	}

	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.TrackID
	}

	r.enc = enc
	r.proj = proj
	r.data = proj.transform(encoded)
	r.ids = ids
	return nil
}

// Recommend returns neighbour track ids per query row, each row's
// neighbours ordered by ascending distance, rows concatenated in input
// order. The index is searched for k+1 candidates per row and any
// candidate at effectively zero distance is dropped as the query track
// itself.
func (r *KnnRecommender) Recommend(rows []features.Row) ([]string, error) {
	if r.data == nil {
		return nil, errs.ErrModelUnavailable
	}
	if len(rows) == 0 {
		return nil, nil
	}

	queries := r.proj.transform(r.enc.transform(rows))
	n, _ := queries.Dims()
	trainRows, _ := r.data.Dims()

	var out []string
	for i := 0; i < n; i++ {
		neighbours := make([]neighbour, trainRows)
		for j := 0; j < trainRows; j++ {
			neighbours[j] = neighbour{
				index:    j,
				distance: manhattan(queries.RawRowView(i), r.data.RawRowView(j)),
			}
		}
		sort.Slice(neighbours, func(a, b int) bool {
			return neighbours[a].distance < neighbours[b].distance
		})
		if len(neighbours) > r.k+1 {
			neighbours = neighbours[:r.k+1]
		}

		for _, nb := range neighbours {
			if nb.distance <= selfMatchEpsilon {
				continue
			}
			out = append(out, r.ids[nb.index])
		}
	}
	return out, nil
}

type neighbour struct {
	index    int
	distance float64
}

func manhattan(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += math.Abs(a[i] - b[i])
	}
	return sum
}
