package trial

import (
	"fmt"

	"mcceval/internal/model"
)

// Zip pairs primaries[i] with secondaries[i]. Body/brain populations are stored as aligned
// slices, one brain per body.
func Zip(kind model.PairKind, primaries, secondaries []model.Genome) ([]*model.EvaluationUnit, error) {
	if len(primaries) != len(secondaries) {
		return nil, fmt.Errorf("%w: cannot pair %d %s genomes with %d %s genomes",
			model.ErrConfiguration, len(primaries), kindOf(kind, 0), len(secondaries), kindOf(kind, 1))
	}
	units := make([]*model.EvaluationUnit, len(primaries))
	for i := range primaries {
		units[i] = model.NewEvaluationUnit(kind, primaries[i], secondaries[i])
	}
	return units, nil
}

// CrossProduct pairs every primary with every secondary, primaries outermost.
func CrossProduct(kind model.PairKind, primaries, secondaries []model.Genome) []*model.EvaluationUnit {
	units := make([]*model.EvaluationUnit, 0, len(primaries)*len(secondaries))
	for _, p := range primaries {
		for _, s := range secondaries {
			units = append(units, model.NewEvaluationUnit(kind, p, s))
		}
	}
	return units
}

func kindOf(pair model.PairKind, side int) model.GenomeKind {
	primary, secondary := pair.Kinds()
	if side == 0 {
		return primary
	}
	return secondary
}
