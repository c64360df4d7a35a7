// Package compressed opens destination output files, wrapping them with the
// configured compression algorithm.
package compressed

import (
	"bufio"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ajitpratap0/refinery/pkg/compression"
	"github.com/ajitpratap0/refinery/pkg/config"
	"github.com/ajitpratap0/refinery/pkg/errors"
	"github.com/ajitpratap0/refinery/pkg/logger"
)

const bufferSize = 64 * 1024

// Writer is a buffered, optionally compressed file. Close must be called
// to flush the buffer and finish the compressed stream.
type Writer struct {
	path       string
	algorithm  compression.Algorithm
	file       *os.File
	compressed io.WriteCloser
	buffered   *bufio.Writer
	written    int64
	logger     *zap.Logger
}

// Open creates cfg.OutputPath, replacing any existing file, and its parent
// directories.
func Open(cfg *config.DestinationConfig, log *zap.Logger) (*Writer, error) {
	if cfg == nil || cfg.OutputPath == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "destination requires output_path")
	}
	algorithm, err := compression.ParseAlgorithm(cfg.Compression)
	if err != nil {
		return nil, err
	}
	level, err := compression.ParseLevel(cfg.CompressionLevel)
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(cfg.OutputPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create output directory").
				WithDetail("path", dir)
		}
	}
	file, err := os.Create(cfg.OutputPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to create output file").
			WithDetail("path", cfg.OutputPath)
	}

	cw, err := compression.Wrap(file, algorithm, level)
	if err != nil {
		file.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create compression writer").
			WithDetail("compression", string(algorithm))
	}

	w := &Writer{
		path:       cfg.OutputPath,
		algorithm:  algorithm,
		file:       file,
		compressed: cw,
		buffered:   bufio.NewWriterSize(cw, bufferSize),
		logger:     logger.OrDefault(log).With(zap.String("component", "compressed_writer")),
	}
	return w, nil
}

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (int, error) {
	n, err := w.buffered.Write(p)
	w.written += int64(n)
	return n, err
}

// Path returns the output file path.
func (w *Writer) Path() string { return w.path }

// Close flushes the buffer, finishes the compressed stream and closes the
// file. The first error wins, but every step runs.
func (w *Writer) Close() error {
	if w.file == nil {
		return nil
	}
	var first error
	if err := w.buffered.Flush(); err != nil {
		first = err
	}
	if err := w.compressed.Close(); err != nil && first == nil {
		first = err
	}
	if err := w.file.Close(); err != nil && first == nil {
		first = err
	}
	w.file = nil
	if first != nil {
		return errors.Wrap(first, errors.ErrorTypeFile, "failed to finish output file").WithDetail("path", w.path)
	}

	w.logger.Debug("output file closed",
		zap.String("path", w.path),
		zap.String("compression", string(w.algorithm)),
		zap.Int64("uncompressed_bytes", w.written))
	return nil
}

// Abort closes the file without reporting errors and removes it.
func (w *Writer) Abort() {
	if w.file == nil {
		return
	}
	_ = w.compressed.Close()
	_ = w.file.Close()
	_ = os.Remove(w.path)
	w.file = nil
}
