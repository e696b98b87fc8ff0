// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Dec 12th 2025
// Project: Geo Experiment Causal Effect and Preanalysis Toolkit
// Class: 02-613 at Caregie Mellon University

package regress

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Sampler draws from the normal / inverse chi-square posterior of a linear
// model: sigma^2 = S2 * DF / chi2(DF), theta | sigma^2 ~ N(Mean, sigma^2 L L').
// With S2 = 1 and L the Cholesky factor of a scaled covariance, the theta
// draws are multivariate Student-t.
type Sampler struct {
	Mean []float64
	L    *mat.TriDense
	S2   float64
	DF   float64
}

// NewSampler factors cov (unscaled by S2). A covariance that is only positive
// semi-definite, e.g. a noise free response, is factored with zero pivots.
func NewSampler(mean []float64, cov mat.Symmetric, s2 float64, df int) *Sampler {
	return &Sampler{
		Mean: append([]float64(nil), mean...),
		L:    LowerFactor(cov),
		S2:   s2,
		DF:   float64(df),
	}
}

// Draw writes one parameter draw to out (len(Mean)) and returns the sigma used.
func (s *Sampler) Draw(rng *rand.Rand, out []float64) float64 {
	k := len(s.Mean)
	sigma := 0.0
	if s.S2 > 0 {
		chi := distuv.ChiSquared{K: s.DF, Src: rng}.Rand()
		sigma = math.Sqrt(s.S2 * s.DF / chi)
	}

	z := make([]float64, k)
	for i := range z {
		z[i] = rng.NormFloat64()
	}
	for i := 0; i < k; i++ {
		v := 0.0
		for j := 0; j <= i; j++ {
			v += s.L.At(i, j) * z[j]
		}
		out[i] = s.Mean[i] + sigma*v
	}
	return sigma
}

// LowerFactor returns L with L L' = cov. It uses a Cholesky factorization when
// cov is positive definite and a pivot-clamped Cholesky-Banachiewicz otherwise.
func LowerFactor(cov mat.Symmetric) *mat.TriDense {
	k := cov.SymmetricDim()
	L := mat.NewTriDense(k, mat.Lower, nil)

	var chol mat.Cholesky
	if chol.Factorize(cov) {
		chol.LTo(L)
		return L
	}

	// fallback if cov is only semi-definite
	for i := 0; i < k; i++ {
		for j := 0; j <= i; j++ {
			sum := cov.At(i, j)
			for m := 0; m < j; m++ {
				sum -= L.At(i, m) * L.At(j, m)
			}
			if i == j {
				if sum <= 0 {
					sum = 0
				}
				L.SetTri(i, i, math.Sqrt(sum))
				continue
			}
			if d := L.At(j, j); d > 0 {
				L.SetTri(i, j, sum/d)
			}
		}
	}
	return L
}
