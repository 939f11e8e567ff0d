package nn

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strings"
)

var ErrActivationNotFound = errors.New("activation not found")

type ActivationFunc func(x float64) float64

// activations maps lower-case names to functions. It is fixed at package init, so lookups
// need no locking.
var activations = map[string]ActivationFunc{
	"identity": func(x float64) float64 { return x },
	"relu":     func(x float64) float64 { return max(x, 0) },
	"tanh":     math.Tanh,
	"sigmoid":  func(x float64) float64 { return 1 / (1 + math.Exp(-x)) },
	// Pattern-producing functions used by body and brain CPPNs.
	"sin":             math.Sin,
	"cos":             math.Cos,
	"gauss":           func(x float64) float64 { return math.Exp(-x * x) },
	"abs":             math.Abs,
	"bipolar_sigmoid": func(x float64) float64 { return 2/(1+math.Exp(-x)) - 1 },
	"step": func(x float64) float64 {
		if x > 0 {
			return 1
		}
		return 0
	},
}

// LookupActivation matches name case-insensitively. An unknown name reports the known ones.
func LookupActivation(name string) (ActivationFunc, error) {
	fn, ok := activations[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %s)", ErrActivationNotFound, name, strings.Join(ActivationNames(), ", "))
	}
	return fn, nil
}

// ActivationNames lists the known names in sorted order.
func ActivationNames() []string {
	return slices.Sorted(maps.Keys(activations))
}
