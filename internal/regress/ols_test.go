// Authors: Rohan Adla, Arrio Gonsalves, Shreyan Nalwad, Dylan Setiawan
// Date: Dec 12th 2025
// Project: Geo Experiment Causal Effect and Preanalysis Toolkit
// Class: 02-613 at Caregie Mellon University

package regress

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"GeoExperiment_Causality_Project/geox/internal/geoerr"
)

// almostEqual compares floats with tolerance
func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestSimpleExactLine(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5, 6}
	y := make([]float64, len(x))
	for i := range x {
		y[i] = 3 + 2*x[i]
	}

	f, err := Simple(x, y)
	if err != nil {
		t.Fatalf("Simple: %v", err)
	}
	if !almostEqual(f.Coef(0, 0), 3, 1e-9) || !almostEqual(f.Coef(1, 0), 2, 1e-9) {
		t.Errorf("coef = (%v, %v); want (3, 2)", f.Coef(0, 0), f.Coef(1, 0))
	}
	if f.DF != 4 {
		t.Errorf("DF = %d; want 4", f.DF)
	}
	if !almostEqual(f.SigmaU.At(0, 0), 0, 1e-18) {
		t.Errorf("sigma^2 = %v; want 0", f.SigmaU.At(0, 0))
	}
}

func TestSimpleNoisy(t *testing.T) {
	// residuals +1,-1,-1,+1 around y = x
	x := []float64{0, 1, 2, 3}
	y := []float64{1, 0, 1, 4}

	f, err := Simple(x, y)
	if err != nil {
		t.Fatalf("Simple: %v", err)
	}
	// xbar = 1.5, ybar = 1.5, Sxy = 5, Sxx = 5
	if !almostEqual(f.Coef(1, 0), 1, 1e-9) || !almostEqual(f.Coef(0, 0), 0, 1e-9) {
		t.Errorf("coef = (%v, %v); want (0, 1)", f.Coef(0, 0), f.Coef(1, 0))
	}
	// RSS = 4, df = 2
	if !almostEqual(f.SigmaU.At(0, 0), 2, 1e-9) {
		t.Errorf("sigma^2 = %v; want 2", f.SigmaU.At(0, 0))
	}
	// se(b) = sqrt(sigma^2 / Sxx)
	if !almostEqual(f.StdErr(1, 0), math.Sqrt(2.0/5.0), 1e-9) {
		t.Errorf("se(b) = %v; want %v", f.StdErr(1, 0), math.Sqrt(2.0/5.0))
	}
}

func TestEstimateDegenerate(t *testing.T) {
	_, err := Simple([]float64{2, 2, 2, 2}, []float64{1, 2, 3, 4})
	if !errors.Is(err, geoerr.ErrDegenerateRegression) {
		t.Errorf("constant x: err = %v; want ErrDegenerateRegression", err)
	}
	_, err = Simple([]float64{1, 2}, []float64{1, 2})
	if !errors.Is(err, geoerr.ErrInsufficientData) {
		t.Errorf("two points: err = %v; want insufficient data", err)
	}
}

func TestWeightedEqualsOLSUnderEqualWeights(t *testing.T) {
	X := mat.NewDense(5, 2, []float64{1, 1, 1, 2, 1, 4, 1, 7, 1, 8})
	Y := mat.NewDense(5, 2, []float64{2, 1, 3, 0, 9, 2, 14, 5, 15, 4})

	ols, err := Estimate(X, Y, nil)
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	wls, err := Estimate(X, Y, []float64{3, 3, 3, 3, 3})
	if err != nil {
		t.Fatalf("Estimate weighted: %v", err)
	}
	for i := 0; i < 2; i++ {
		for k := 0; k < 2; k++ {
			if !almostEqual(ols.Coef(i, k), wls.Coef(i, k), 1e-9) {
				t.Errorf("coef(%d,%d): ols %v, wls %v", i, k, ols.Coef(i, k), wls.Coef(i, k))
			}
			// scale cancels between sigma and (X'WX)^-1
			if !almostEqual(ols.StdErr(i, k), wls.StdErr(i, k), 1e-9) {
				t.Errorf("se(%d,%d): ols %v, wls %v", i, k, ols.StdErr(i, k), wls.StdErr(i, k))
			}
		}
	}
}

func TestEstimateWeightsDownweightOutlier(t *testing.T) {
	X := mat.NewDense(5, 2, []float64{1, 0, 1, 1, 1, 2, 1, 3, 1, 4})
	Y := mat.NewDense(5, 1, []float64{0, 1, 2, 3, 20})

	ols, _ := Estimate(X, Y, nil)
	wls, err := Estimate(X, Y, []float64{1, 1, 1, 1, 1e-6})
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if !(math.Abs(wls.Coef(1, 0)-1) < math.Abs(ols.Coef(1, 0)-1)) {
		t.Errorf("weighted slope %v not closer to 1 than OLS slope %v", wls.Coef(1, 0), ols.Coef(1, 0))
	}
}
