// Package codec decodes serialized genomes into simulatable phenotypes. Each genome kind has
// its own codec; all codecs are immutable values and safe for concurrent use.
package codec

import (
	"encoding/json"
	"fmt"

	"mcceval/internal/model"
	"mcceval/internal/nn"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

type networkDocument struct {
	model.VersionedRecord
	Network model.Network `json:"network"`
}

// EncodeNetwork produces the versioned encoding consumed by the body, brain and navigator codecs.
func EncodeNetwork(network model.Network) (string, error) {
	doc := networkDocument{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
		Network:         network,
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func checkKind(g model.Genome, want model.GenomeKind) error {
	if g.Kind != "" && g.Kind != want {
		return model.NewDecodeError(g, "expected %s genome", want)
	}
	return nil
}

func checkVersion(g model.Genome, record model.VersionedRecord) error {
	if record.SchemaVersion != CurrentSchemaVersion || record.CodecVersion != CurrentCodecVersion {
		return model.NewDecodeError(g, "version mismatch: schema=%d codec=%d", record.SchemaVersion, record.CodecVersion)
	}
	return nil
}

func decodeNetwork(g model.Genome, want model.GenomeKind, inputIDs, outputIDs []string) (*nn.Compiled, model.Network, error) {
	if err := checkKind(g, want); err != nil {
		return nil, model.Network{}, err
	}
	var doc networkDocument
	if err := json.Unmarshal([]byte(g.Encoding), &doc); err != nil {
		return nil, model.Network{}, model.NewDecodeError(g, "malformed encoding: %w", err)
	}
	if err := checkVersion(g, doc.VersionedRecord); err != nil {
		return nil, model.Network{}, err
	}
	compiled, err := nn.Compile(doc.Network, inputIDs, outputIDs)
	if err != nil {
		return nil, model.Network{}, model.NewDecodeError(g, "incompatible network: %w", err)
	}
	return compiled, doc.Network, nil
}

// normalize maps grid index i of n cells onto [-1, 1].
func normalize(i, n int) float64 {
	if n <= 1 {
		return 0
	}
	return 2*float64(i)/float64(n-1) - 1
}

func indexedIDs(prefix string, n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return ids
}
