package sim

import "testing"

func TestBrownianGeneratorDeterministic(t *testing.T) {
	var g BrownianGenerator
	a := g.Generate(42, InterceptInCoint, 3, 500)
	b := g.Generate(42, InterceptInCoint, 3, 500)
	if len(a) != 4 {
		t.Fatalf("got %d values, want 4", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("value %d differs across calls: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestBrownianGeneratorSeedsDiffer(t *testing.T) {
	var g BrownianGenerator
	a := g.Generate(1, NoInterceptNoTrend, 2, 200)
	b := g.Generate(2, NoInterceptNoTrend, 2, 200)
	same := true
	for i := range a {
		if a[i] != b[i] {
			same = false
		}
	}
	if same {
		t.Error("seeds 1 and 2 produced identical trials")
	}
}

func TestBrownianGeneratorOrderedPositive(t *testing.T) {
	var g BrownianGenerator
	for seed := uint32(0); seed < 20; seed++ {
		values := g.Generate(seed, InterceptTrend, 5, 300)
		if len(values) != 5 {
			t.Fatalf("seed %d: got %d values, want 5", seed, len(values))
		}
		for i, v := range values {
			if v < 0 {
				t.Errorf("seed %d: negative eigenvalue %v", seed, v)
			}
			if i > 0 && values[i-1] < v {
				t.Errorf("seed %d: values not descending at %d", seed, i)
			}
		}
	}
}
