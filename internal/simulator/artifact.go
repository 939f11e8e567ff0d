package simulator

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"mcceval/internal/model"
)

// ReadArtifact parses a simulator result artifact. Missing or unparseable artifacts are
// simulation failures.
func ReadArtifact(path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("%w: read result artifact: %v", model.ErrSimulation, err)
	}
	if len(data) == 0 {
		return Result{}, fmt.Errorf("%w: empty result artifact %s", model.ErrSimulation, path)
	}
	var result Result
	if err := yaml.Unmarshal(data, &result); err != nil {
		return Result{}, fmt.Errorf("%w: parse result artifact: %v", model.ErrSimulation, err)
	}
	if result.Steps < 0 {
		return Result{}, fmt.Errorf("%w: negative step count %d", model.ErrSimulation, result.Steps)
	}
	return result, nil
}
