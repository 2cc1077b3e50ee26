package market

import (
	"math"
	"testing"
	"time"
)

func sampleFrom(t *testing.T, da, rt []float64) Sample {
	t.Helper()
	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	ts := make([]time.Time, len(da))
	for i := range ts {
		ts[i] = base.Add(time.Duration(i) * time.Hour)
	}
	s, err := NewSample(ts, da, rt)
	if err != nil {
		t.Fatalf("new sample: %v", err)
	}
	return s
}

func TestFitDistribution(t *testing.T) {
	s := sampleFrom(t,
		[]float64{380, 400, 420, 440},
		[]float64{390, 390, 410, 410},
	)
	dist, err := FitDistribution(s, time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(dist.DA.Mu-410) > 1e-9 {
		t.Errorf("expected DA mean 410, got %f", dist.DA.Mu)
	}
	if math.Abs(dist.RT.Mu-400) > 1e-9 {
		t.Errorf("expected RT mean 400, got %f", dist.RT.Mu)
	}
	if dist.DA.Sigma <= 0 || dist.RT.Sigma <= 0 {
		t.Errorf("sigmas must be positive: %+v", dist)
	}
}

func TestFitDistribution_CutoffFilters(t *testing.T) {
	s := sampleFrom(t,
		[]float64{100, 100, 900, 900},
		[]float64{100, 100, 900, 900},
	)
	cutoff := time.Date(2025, 5, 1, 2, 0, 0, 0, time.UTC) // keeps first two hours only
	dist, err := FitDistribution(s, cutoff)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(dist.DA.Mu-100) > 1e-9 {
		t.Errorf("cutoff not applied, DA mean %f", dist.DA.Mu)
	}
}

func TestFitDistribution_SigmaFloor(t *testing.T) {
	s := sampleFrom(t,
		[]float64{400, 400, 400},
		[]float64{400, 400, 400},
	)
	dist, err := FitDistribution(s, time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dist.DA.Sigma < stdEpsilon || dist.RT.Sigma < stdEpsilon {
		t.Errorf("sigma must be floored at epsilon: %+v", dist)
	}
}

func TestFitDistribution_InsufficientData(t *testing.T) {
	s := sampleFrom(t, []float64{400}, []float64{400})
	if _, err := FitDistribution(s, time.Time{}); err != ErrInsufficientData {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}

	// cutoff 过滤后不足
	s = sampleFrom(t, []float64{400, 410, 420}, []float64{400, 410, 420})
	cutoff := time.Date(2025, 5, 1, 1, 0, 0, 0, time.UTC)
	if _, err := FitDistribution(s, cutoff); err != ErrInsufficientData {
		t.Fatalf("expected ErrInsufficientData after cutoff, got %v", err)
	}
}

func TestGaussianPdf_Symmetric(t *testing.T) {
	g := Gaussian{Mu: 400, Sigma: 25}
	if math.Abs(g.Pdf(390)-g.Pdf(410)) > 1e-12 {
		t.Error("pdf must be symmetric around the mean")
	}
	if g.Pdf(400) <= g.Pdf(450) {
		t.Error("pdf must peak at the mean")
	}
}
