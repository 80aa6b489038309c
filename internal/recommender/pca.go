package recommender

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// pca is a fitted principal-component projection: center on the training
// mean, project onto the leading right singular vectors.
type pca struct {
	Mean       []float64
	Components *mat.Dense // d x k
}

// fitPCA fits on X, keeping at most components dimensions. The component
// count is clamped to what the data supports.
func fitPCA(x *mat.Dense, components int) (*pca, error) {
	n, d := x.Dims()
	if components > n {
		components = n
	}
	if components > d {
		components = d
	}
	if components < 1 {
		return nil, fmt.Errorf("cannot fit projection on %dx%d matrix", n, d)
	}

	mean := make([]float64, d)
	for j := 0; j < d; j++ {
		var sum float64
		for i := 0; i < n; i++ {
			sum += x.At(i, j)
		}
		mean[j] = sum / float64(n)
	}

	centered := mat.NewDense(n, d, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			centered.Set(i, j, x.At(i, j)-mean[j])
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(centered, mat.SVDThin); !ok {
		return nil, fmt.Errorf("svd factorization failed on %dx%d matrix", n, d)
	}
	var v mat.Dense
	svd.VTo(&v)

	comp := mat.NewDense(d, components, nil)
	for j := 0; j < components; j++ {
		for i := 0; i < d; i++ {
			comp.Set(i, j, v.At(i, j))
		}
	}
	return &pca{Mean: mean, Components: comp}, nil
}

// transform projects rows into the fitted component space.
func (p *pca) transform(x *mat.Dense) *mat.Dense {
	n, d := x.Dims()
	centered := mat.NewDense(n, d, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			centered.Set(i, j, x.At(i, j)-p.Mean[j])
		}
	}
	var out mat.Dense
	out.Mul(centered, p.Components)
	return &out
}
