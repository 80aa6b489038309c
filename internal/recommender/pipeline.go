// Package recommender implements similarity search over track feature
// vectors: a fitted encoding pipeline, dimensionality reduction and a
// nearest-neighbour index, plus blob-store persistence for the trained
// artifacts.
package recommender

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/slavkostrov/playlist-selection/internal/features"
)

// encoder turns feature rows into a dense matrix: the union of numeric
// columns in sorted order, then one one-hot column per training genre.
// Missing numeric values are imputed with the training mean and every
// column is standard scaled. All parameters are frozen at fit time.
type encoder struct {
	NumericColumns []string
	Genres         []string
	Impute         []float64
	Mean           []float64
	Std            []float64
}

func (e *encoder) fit(rows []features.Row) {
	cols := map[string]struct{}{}
	genres := map[string]struct{}{}
	for _, row := range rows {
		for key := range row.Numeric {
			cols[key] = struct{}{}
		}
		genres[row.Genre] = struct{}{}
	}
	e.NumericColumns = sortedKeys(cols)
	e.Genres = sortedKeys(genres)

	raw := e.raw(rows)
	n, width := raw.Dims()

	// Imputation means over the observed values per numeric column.
	e.Impute = make([]float64, len(e.NumericColumns))
	for j := range e.NumericColumns {
		var sum float64
		var count int
		for i := 0; i < n; i++ {
			if v := raw.At(i, j); !math.IsNaN(v) {
				sum += v
				count++
			}
		}
		if count > 0 {
			e.Impute[j] = sum / float64(count)
		}
	}
	impute(raw, e.Impute)

	// Standard scaling over the full encoded width.
	e.Mean = make([]float64, width)
	e.Std = make([]float64, width)
	for j := 0; j < width; j++ {
		var sum float64
		for i := 0; i < n; i++ {
			sum += raw.At(i, j)
		}
		mean := sum / float64(n)
		var sq float64
		for i := 0; i < n; i++ {
			d := raw.At(i, j) - mean
			sq += d * d
		}
		std := math.Sqrt(sq / float64(n))
		if std == 0 {
			std = 1
		}
		e.Mean[j] = mean
		e.Std[j] = std
	}
}

// transform encodes rows with the fitted parameters. Unseen genres map
// to an all-zero one-hot block and unseen numeric columns are ignored.
func (e *encoder) transform(rows []features.Row) *mat.Dense {
	raw := e.raw(rows)
	impute(raw, e.Impute)
	n, width := raw.Dims()
	for i := 0; i < n; i++ {
		for j := 0; j < width; j++ {
			raw.Set(i, j, (raw.At(i, j)-e.Mean[j])/e.Std[j])
		}
	}
	return raw
}

func (e *encoder) width() int {
	return len(e.NumericColumns) + len(e.Genres)
}

// raw builds the unscaled matrix, NaN marking absent numeric values.
func (e *encoder) raw(rows []features.Row) *mat.Dense {
	width := e.width()
	m := mat.NewDense(len(rows), width, nil)
	genreIndex := map[string]int{}
	for i, g := range e.Genres {
		genreIndex[g] = len(e.NumericColumns) + i
	}
	for i, row := range rows {
		for j, col := range e.NumericColumns {
			v, ok := row.Numeric[col]
			if !ok || math.IsNaN(v) {
				v = math.NaN()
			}
			m.Set(i, j, v)
		}
		if j, ok := genreIndex[row.Genre]; ok {
			m.Set(i, j, 1)
		}
	}
	return m
}

func impute(m *mat.Dense, means []float64) {
	n, _ := m.Dims()
	for j := range means {
		for i := 0; i < n; i++ {
			if math.IsNaN(m.At(i, j)) {
				m.Set(i, j, means[j])
			}
		}
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
