package nn

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"
)

func TestLookupActivationIgnoresCase(t *testing.T) {
	fn, err := LookupActivation(" Tanh ")
	if err != nil {
		t.Fatalf("lookup tanh: %v", err)
	}
	if got := fn(0.3); math.Abs(got-math.Tanh(0.3)) > 1e-12 {
		t.Fatalf("tanh(0.3) = %v", got)
	}
}

func TestLookupActivationUnknownListsKnownNames(t *testing.T) {
	_, err := LookupActivation("softplus")
	if !errors.Is(err, ErrActivationNotFound) {
		t.Fatalf("expected ErrActivationNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "known: abs, bipolar_sigmoid, cos") {
		t.Fatalf("expected known names in error, got %q", err)
	}
}

func TestActivationNamesSorted(t *testing.T) {
	want := []string{"abs", "bipolar_sigmoid", "cos", "gauss", "identity", "relu", "sigmoid", "sin", "step", "tanh"}
	if got := ActivationNames(); !reflect.DeepEqual(got, want) {
		t.Fatalf("names = %v, want %v", got, want)
	}
}

func TestBuiltinActivations(t *testing.T) {
	tests := []struct {
		name string
		x    float64
		want float64
	}{
		{name: "identity", x: 2.5, want: 2.5},
		{name: "relu", x: -1, want: 0},
		{name: "relu", x: 1.5, want: 1.5},
		{name: "tanh", x: 0, want: 0},
		{name: "sigmoid", x: 0, want: 0.5},
		{name: "bipolar_sigmoid", x: 0, want: 0},
		{name: "sin", x: math.Pi / 2, want: 1},
		{name: "cos", x: 0, want: 1},
		{name: "gauss", x: 0, want: 1},
		{name: "abs", x: -3, want: 3},
		{name: "step", x: 0.1, want: 1},
		{name: "step", x: -0.1, want: 0},
	}
	for _, tc := range tests {
		fn, err := LookupActivation(tc.name)
		if err != nil {
			t.Fatalf("lookup %s: %v", tc.name, err)
		}
		if got := fn(tc.x); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("%s(%v) = %v, want %v", tc.name, tc.x, got, tc.want)
		}
	}
}
