package pipeline

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"mcceval/internal/model"
	"mcceval/internal/storage"
)

const maxImportLine = 16 << 20

// GenomeLine is one line of a genome import file.
type GenomeLine struct {
	Run   int `json:"run"`
	Batch int `json:"batch"`
	model.Genome
}

type importGroup struct {
	run, batch int
}

// ImportGenomes reads JSON lines from r into store under experimentID, saving in groups of at
// most flushSize genomes. It returns the number of genomes saved.
func ImportGenomes(ctx context.Context, store storage.Store, experimentID string, r io.Reader, flushSize int) (int, error) {
	if flushSize <= 0 {
		return 0, fmt.Errorf("%w: import flush size must be > 0, got %d", model.ErrConfiguration, flushSize)
	}
	pending := make(map[importGroup][]model.Genome)
	var order []importGroup
	saved := 0
	flush := func(g importGroup) error {
		genomes := pending[g]
		if len(genomes) == 0 {
			return nil
		}
		if err := store.SaveGenomes(ctx, experimentID, g.run, g.batch, genomes); err != nil {
			return fmt.Errorf("save run %d batch %d: %w", g.run, g.batch, err)
		}
		saved += len(genomes)
		pending[g] = genomes[:0]
		return nil
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxImportLine)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var gl GenomeLine
		if err := json.Unmarshal(scanner.Bytes(), &gl); err != nil {
			return saved, fmt.Errorf("line %d: %w", line, err)
		}
		if !gl.Kind.Valid() {
			return saved, fmt.Errorf("line %d: unknown genome kind %q", line, gl.Kind)
		}
		g := importGroup{gl.Run, gl.Batch}
		if _, ok := pending[g]; !ok {
			order = append(order, g)
		}
		pending[g] = append(pending[g], gl.Genome)
		if len(pending[g]) >= flushSize {
			if err := flush(g); err != nil {
				return saved, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return saved, fmt.Errorf("reading genomes: %w", err)
	}
	for _, g := range order {
		if err := flush(g); err != nil {
			return saved, err
		}
	}
	return saved, nil
}
