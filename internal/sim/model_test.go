package sim

import "testing"

func TestModelNumbers(t *testing.T) {
	for i, m := range AllModels() {
		if uint8(m) != uint8(i) {
			t.Errorf("model %d: selector %d", i, uint8(m))
		}
		got, ok := ModelFromNumber(uint8(i))
		if !ok || got != m {
			t.Errorf("ModelFromNumber(%d): got (%v, %v)", i, got, ok)
		}
	}
	if _, ok := ModelFromNumber(5); ok {
		t.Error("ModelFromNumber(5) accepted")
	}
}

func TestValuesPerTrial(t *testing.T) {
	cases := []struct {
		m    Model
		dim  int
		want int
	}{
		{NoInterceptNoTrend, 3, 3},
		{InterceptInCoint, 3, 4},
		{InterceptNoTrend, 3, 3},
		{InterceptTrendInCoint, 5, 6},
		{InterceptTrend, 5, 5},
	}
	for _, c := range cases {
		if got := c.m.ValuesPerTrial(c.dim); got != c.want {
			t.Errorf("%v dim %d: got %d, want %d", c.m, c.dim, got, c.want)
		}
	}
}

func TestModelTerms(t *testing.T) {
	if NoInterceptNoTrend.HasIntercept() || NoInterceptNoTrend.HasTrend() {
		t.Error("model 0 has no deterministic terms")
	}
	if !InterceptInCoint.HasIntercept() || InterceptInCoint.HasTrend() {
		t.Error("model 1: intercept only")
	}
	if !InterceptTrend.HasIntercept() || !InterceptTrend.HasTrend() {
		t.Error("model 4: intercept and trend")
	}
}
