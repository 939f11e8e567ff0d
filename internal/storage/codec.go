package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"mcceval/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

type ResultKind string

const (
	ResultEvaluations  ResultKind = "evaluations"
	ResultDiversity    ResultKind = "diversity"
	ResultUpscale      ResultKind = "upscale"
	ResultSolveTallies ResultKind = "solve_tallies"
)

type batchPayload[T any] struct {
	model.VersionedRecord
	Key     BatchKey `json:"key"`
	Records []T      `json:"records"`
}

// EncodeBatch serializes one chunk's records with the current schema and codec versions.
func EncodeBatch[T any](key BatchKey, records []T) ([]byte, error) {
	if records == nil {
		records = []T{}
	}
	return json.Marshal(batchPayload[T]{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
		Key:             key,
		Records:         records,
	})
}

func DecodeBatch[T any](data []byte) (BatchKey, []T, error) {
	var payload batchPayload[T]
	if err := json.Unmarshal(data, &payload); err != nil {
		return BatchKey{}, nil, err
	}
	if err := checkVersion(payload.VersionedRecord); err != nil {
		return BatchKey{}, nil, err
	}
	return payload.Key, payload.Records, nil
}

func decodeAll[T any](kind ResultKind, payloads [][]byte) ([]T, error) {
	var out []T
	for _, data := range payloads {
		key, records, err := DecodeBatch[T](data)
		if err != nil {
			return nil, fmt.Errorf("decode %s batch %s: %w", kind, key.BatchID, err)
		}
		out = append(out, records...)
	}
	return out, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
