package training

import (
	"io"
	"os"

	"github.com/ajitpratap0/refinery/pkg/compression"
	"github.com/ajitpratap0/refinery/pkg/errors"
	"github.com/ajitpratap0/refinery/pkg/json"
)

// MarshalModel encodes m as JSON and compresses it with algorithm.
func MarshalModel(m *Model, algorithm compression.Algorithm, level compression.Level) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode model")
	}
	return compression.Compress(data, algorithm, level)
}

// UnmarshalModel reverses MarshalModel.
func UnmarshalModel(data []byte, algorithm compression.Algorithm) (*Model, error) {
	raw, err := compression.Decompress(data, algorithm)
	if err != nil {
		return nil, err
	}
	var m Model
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decode model")
	}
	return &m, nil
}

// SaveModel writes the artifact to path. The compression algorithm is taken
// from the path's extension, so "model.json.zst" is zstd-compressed.
func SaveModel(path string, m *Model) error {
	data, err := MarshalModel(m, compression.FromPath(path), compression.Default)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write model artifact").WithDetail("path", path)
	}
	return nil
}

// LoadModel reads an artifact written by SaveModel.
func LoadModel(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open model artifact").WithDetail("path", path)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read model artifact").WithDetail("path", path)
	}
	return UnmarshalModel(data, compression.FromPath(path))
}
