// Package compression wraps export streams and model artifacts with one of
// several compression algorithms.
//
// # Overview
//
// The compression package provides:
//   - Multiple compression algorithms (Gzip, Snappy, LZ4, Zstd, S2, Deflate)
//   - Configurable compression levels (Fastest, Default, Better, Best)
//   - Streaming writers and readers for destinations
//   - In-memory helpers for small payloads such as model artifacts
//
// # Algorithm Selection
//
//   - Snappy/S2: Best for speed, moderate compression
//   - LZ4: Extremely fast, decent compression
//   - Zstd: Best compression ratio, good speed
//   - Gzip: Wide compatibility, good compression
//   - Deflate: Standard algorithm, wide support
//
// # Basic Usage
//
//	w, err := compression.Wrap(file, compression.Zstd, compression.Default)
//	if err != nil {
//		return err
//	}
//	defer w.Close()
package compression

import (
	"bytes"
	"io"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/ajitpratap0/refinery/pkg/errors"
)

// Algorithm represents a compression algorithm.
type Algorithm string

const (
	// None represents no compression
	None Algorithm = "none"
	// Gzip represents gzip compression
	Gzip Algorithm = "gzip"
	// Snappy represents snappy compression
	Snappy Algorithm = "snappy"
	// LZ4 represents lz4 compression
	LZ4 Algorithm = "lz4"
	// Zstd represents zstandard compression
	Zstd Algorithm = "zstd"
	// S2 represents s2 compression (Snappy compatible)
	S2 Algorithm = "s2"
	// Deflate represents deflate compression
	Deflate Algorithm = "deflate"
)

// Algorithms lists every supported algorithm.
var Algorithms = []Algorithm{None, Gzip, Snappy, LZ4, Zstd, S2, Deflate}

// ParseAlgorithm parses an algorithm name. The empty string means None.
func ParseAlgorithm(s string) (Algorithm, error) {
	if s == "" {
		return None, nil
	}
	a := Algorithm(strings.ToLower(s))
	for _, known := range Algorithms {
		if a == known {
			return a, nil
		}
	}
	return None, errors.InvalidMethod("compression", s)
}

// Extension returns the file suffix conventionally used for a, including
// the leading dot, or "" for None.
func (a Algorithm) Extension() string {
	switch a {
	case Gzip:
		return ".gz"
	case Snappy:
		return ".sz"
	case LZ4:
		return ".lz4"
	case Zstd:
		return ".zst"
	case S2:
		return ".s2"
	case Deflate:
		return ".deflate"
	default:
		return ""
	}
}

// FromPath returns the algorithm whose extension ends path, or None.
func FromPath(path string) Algorithm {
	for _, a := range Algorithms {
		if ext := a.Extension(); ext != "" && strings.HasSuffix(path, ext) {
			return a
		}
	}
	return None
}

// Level represents compression level, controlling the trade-off between
// compression speed and compression ratio.
type Level int

const (
	// Fastest prioritizes speed over compression ratio.
	Fastest Level = 1
	// Default balances speed and compression.
	Default Level = 5
	// Better improves compression at cost of speed.
	Better Level = 7
	// Best maximizes compression ratio.
	Best Level = 9
)

// ParseLevel parses fastest, default, better or best. The empty string
// means Default.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "", "default":
		return Default, nil
	case "fastest":
		return Fastest, nil
	case "better":
		return Better, nil
	case "best":
		return Best, nil
	default:
		return Default, errors.InvalidMethod("compression_level", s)
	}
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// Wrap returns a writer that compresses into w. Closing the returned writer
// flushes the compressed stream but does not close w.
func Wrap(w io.Writer, algorithm Algorithm, level Level) (io.WriteCloser, error) {
	switch algorithm {
	case None, "":
		return nopWriteCloser{w}, nil
	case Gzip:
		return gzip.NewWriterLevel(w, mapGzipLevel(level))
	case Snappy:
		return snappy.NewBufferedWriter(w), nil
	case LZ4:
		lw := lz4.NewWriter(w)
		if err := lw.Apply(lz4.CompressionLevelOption(mapLZ4Level(level))); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to configure lz4 writer")
		}
		return lw, nil
	case Zstd:
		return zstd.NewWriter(w, zstd.WithEncoderLevel(mapZstdLevel(level)))
	case S2:
		opts := []s2.WriterOption{}
		switch level {
		case Better:
			opts = append(opts, s2.WriterBetterCompression())
		case Best:
			opts = append(opts, s2.WriterBestCompression())
		}
		return s2.NewWriter(w, opts...), nil
	case Deflate:
		return flate.NewWriter(w, mapDeflateLevel(level))
	default:
		return nil, errors.InvalidMethod("compression", string(algorithm))
	}
}

// NewReader returns a reader that decompresses r.
func NewReader(r io.Reader, algorithm Algorithm) (io.ReadCloser, error) {
	switch algorithm {
	case None, "":
		return io.NopCloser(r), nil
	case Gzip:
		return gzip.NewReader(r)
	case Snappy:
		return io.NopCloser(snappy.NewReader(r)), nil
	case LZ4:
		return io.NopCloser(lz4.NewReader(r)), nil
	case Zstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	case S2:
		return io.NopCloser(s2.NewReader(r)), nil
	case Deflate:
		return flate.NewReader(r), nil
	default:
		return nil, errors.InvalidMethod("compression", string(algorithm))
	}
}

// Compress compresses data in memory.
func Compress(data []byte, algorithm Algorithm, level Level) ([]byte, error) {
	var buf bytes.Buffer
	w, err := Wrap(&buf, algorithm, level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "compress")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "compress")
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress.
func Decompress(data []byte, algorithm Algorithm) ([]byte, error) {
	r, err := NewReader(bytes.NewReader(data), algorithm)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "decompress")
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "decompress")
	}
	return out, nil
}

// Helper functions to map compression levels

func mapGzipLevel(level Level) int {
	switch level {
	case Fastest:
		return gzip.BestSpeed
	case Best:
		return gzip.BestCompression
	default:
		return gzip.DefaultCompression
	}
}

func mapLZ4Level(level Level) lz4.CompressionLevel {
	switch level {
	case Fastest:
		return lz4.Fast
	case Best:
		return lz4.Level9
	default:
		return lz4.Level5
	}
}

func mapZstdLevel(level Level) zstd.EncoderLevel {
	switch level {
	case Fastest:
		return zstd.SpeedFastest
	case Better:
		return zstd.SpeedBetterCompression
	case Best:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}

func mapDeflateLevel(level Level) int {
	switch level {
	case Fastest:
		return flate.BestSpeed
	case Best:
		return flate.BestCompression
	default:
		return flate.DefaultCompression
	}
}
