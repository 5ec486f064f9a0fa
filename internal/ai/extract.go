package ai

import (
	"encoding/json"
	"sort"
	"strings"
)

// SchemaError reports an embedding response that matched none of the
// known vector shapes. Keys lists the top-level keys the provider
// actually returned, so operators can spot schema drift.
type SchemaError struct {
	Keys []string
}

func (e *SchemaError) Error() string {
	return "embedding response has no recognized vector field (keys: " +
		strings.Join(e.Keys, ", ") + ")"
}

// extractor attempts to pull a vector out of a decoded provider payload.
type extractor func(payload map[string]json.RawMessage) ([]float32, bool)

// extractors are tried in priority order; the first shape that is
// present wins. Titan V2 nests vectors under embeddingsByType.float,
// V1 returns a top-level embedding, and some revisions return a
// plural embeddings list.
var extractors = []extractor{
	extractByType,
	extractSingular,
	extractPlural,
}

// ExtractVector normalizes a provider embedding response to a vector.
// Returns *SchemaError when no known key is present.
func ExtractVector(raw []byte) ([]float32, error) {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	for _, try := range extractors {
		if vec, ok := try(payload); ok {
			return vec, nil
		}
	}
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return nil, &SchemaError{Keys: keys}
}

func extractByType(payload map[string]json.RawMessage) ([]float32, bool) {
	raw, ok := payload["embeddingsByType"]
	if !ok {
		return nil, false
	}
	var byType map[string]json.RawMessage
	if err := json.Unmarshal(raw, &byType); err != nil {
		return nil, false
	}
	f, ok := byType["float"]
	if !ok {
		return nil, false
	}
	var vec []float32
	if err := json.Unmarshal(f, &vec); err != nil {
		return nil, false
	}
	return vec, true
}

func extractSingular(payload map[string]json.RawMessage) ([]float32, bool) {
	raw, ok := payload["embedding"]
	if !ok {
		return nil, false
	}
	var vec []float32
	if err := json.Unmarshal(raw, &vec); err != nil {
		return nil, false
	}
	return vec, true
}

func extractPlural(payload map[string]json.RawMessage) ([]float32, bool) {
	raw, ok := payload["embeddings"]
	if !ok {
		return nil, false
	}
	var vecs [][]float32
	if err := json.Unmarshal(raw, &vecs); err == nil && len(vecs) > 0 {
		return vecs[0], true
	}
	var vec []float32
	if err := json.Unmarshal(raw, &vec); err != nil {
		return nil, false
	}
	return vec, true
}
