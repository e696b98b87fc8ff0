// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Dec 12th 2025
// Project: Geo Experiment Causal Effect and Preanalysis Toolkit
// Class: 02-613 at Caregie Mellon University

// Package regress fits (weighted) least squares with one or more response
// columns sharing a design matrix.
package regress

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"GeoExperiment_Causality_Project/geox/internal/geoerr"
)

// Fit holds the estimated coefficients of Y = X B + U.
type Fit struct {
	// Coefficients (p x k), one column per response
	B *mat.Dense

	// Unscaled coefficient covariance (X'WX)^-1 (p x p)
	XtXInv *mat.SymDense

	// Residual covariance across responses (k x k), divided by DF
	SigmaU *mat.SymDense

	// Residuals (n x k), unweighted
	U *mat.Dense

	// Observations, regressors and residual degrees of freedom
	N, P, DF int
}

// Estimate computes B = (X'WX)^-1 X'WY. weights may be nil for ordinary least
// squares. It fails with ErrDegenerateRegression when X'WX is singular, since
// the coefficient covariance is needed downstream.
func Estimate(X, Y mat.Matrix, weights []float64) (*Fit, error) {
	n, p := X.Dims()
	nY, k := Y.Dims()
	if nY != n {
		return nil, fmt.Errorf("design has %d rows, response has %d: %w", n, nY, geoerr.ErrBadParameter)
	}
	if weights != nil && len(weights) != n {
		return nil, fmt.Errorf("got %d weights for %d rows: %w", len(weights), n, geoerr.ErrBadParameter)
	}
	if n <= p {
		return nil, fmt.Errorf("need more than %d observations, got %d: %w", p, n, geoerr.ErrInsufficientData)
	}

	// Weighted copies: rows scaled by sqrt(w)
	Xw := mat.DenseCopyOf(X)
	Yw := mat.DenseCopyOf(Y)
	if weights != nil {
		for i, w := range weights {
			if w <= 0 || math.IsNaN(w) || math.IsInf(w, 0) {
				return nil, fmt.Errorf("weight %d is %v: %w", i, w, geoerr.ErrBadParameter)
			}
			s := math.Sqrt(w)
			for j := 0; j < p; j++ {
				Xw.Set(i, j, Xw.At(i, j)*s)
			}
			for j := 0; j < k; j++ {
				Yw.Set(i, j, Yw.At(i, j)*s)
			}
		}
	}

	// Rank check first; normal equations on a rank deficient X are meaningless
	var svd mat.SVD
	if !svd.Factorize(Xw, mat.SVDThin) {
		return nil, fmt.Errorf("SVD factorization failed: %w", geoerr.ErrDegenerateRegression)
	}
	if rank := svd.Rank(1e-10); rank < p {
		return nil, fmt.Errorf("design rank %d < %d regressors: %w", rank, p, geoerr.ErrDegenerateRegression)
	}

	// B = (X'X)^(-1) X'Y
	var xtx mat.Dense
	xtx.Mul(Xw.T(), Xw)

	var xtxInv mat.Dense
	if err := xtxInv.Inverse(&xtx); err != nil {
		return nil, fmt.Errorf("X'X not invertible (%v): %w", err, geoerr.ErrDegenerateRegression)
	}

	var xty mat.Dense
	xty.Mul(Xw.T(), Yw)
	B := mat.NewDense(p, k, nil)
	B.Mul(&xtxInv, &xty)

	// Residuals on the original scale
	var Yhat mat.Dense
	Yhat.Mul(X, B)
	U := mat.NewDense(n, k, nil)
	U.Sub(Y, &Yhat)

	// Weighted residual cross products
	df := n - p
	sigmaData := make([]float64, k*k)
	for a := 0; a < k; a++ {
		for b := a; b < k; b++ {
			s := 0.0
			for i := 0; i < n; i++ {
				w := 1.0
				if weights != nil {
					w = weights[i]
				}
				s += w * U.At(i, a) * U.At(i, b)
			}
			sigmaData[a*k+b] = s / float64(df)
			sigmaData[b*k+a] = s / float64(df)
		}
	}

	inv := mat.NewSymDense(p, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			// symmetrize away round-off
			inv.SetSym(i, j, 0.5*(xtxInv.At(i, j)+xtxInv.At(j, i)))
		}
	}

	return &Fit{
		B:      B,
		XtXInv: inv,
		SigmaU: mat.NewSymDense(k, sigmaData),
		U:      U,
		N:      n,
		P:      p,
		DF:     df,
	}, nil
}

// Coef returns coefficient i of response k.
func (f *Fit) Coef(i, k int) float64 { return f.B.At(i, k) }

// StdErr returns the standard error of coefficient i of response k.
func (f *Fit) StdErr(i, k int) float64 {
	return math.Sqrt(f.SigmaU.At(k, k) * f.XtXInv.At(i, i))
}

// Simple fits y = a + b x and returns the fit with coefficients (a, b).
func Simple(x, y []float64) (*Fit, error) {
	if len(x) != len(y) {
		return nil, fmt.Errorf("x has %d values, y has %d: %w", len(x), len(y), geoerr.ErrBadParameter)
	}
	n := len(x)
	if n < 3 {
		return nil, fmt.Errorf("need at least 3 points, got %d: %w", n, geoerr.ErrInsufficientData)
	}
	X := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, 1)
		X.Set(i, 1, x[i])
	}
	return Estimate(X, mat.NewDense(n, 1, append([]float64(nil), y...)), nil)
}
