// Package jsoncodec is the single JSON entry point of topicmap, backed by sonic
// in standard-library compatible mode.
package jsoncodec

import (
	"io"

	"github.com/bytedance/sonic"
)

var defaultConfig = sonic.ConfigStd

func Marshal(v any) ([]byte, error) {
	return defaultConfig.Marshal(v)
}

func Unmarshal(data []byte, v any) error {
	return defaultConfig.Unmarshal(data, v)
}

// Parse decodes a document into the generic representation used by the path
// query engine: map[string]any, []any, float64, string, bool or nil.
func Parse(data []byte) (any, error) {
	var doc any
	if err := defaultConfig.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func Encode(w io.Writer, v any) error {
	return defaultConfig.NewEncoder(w).Encode(v)
}
