// Package json wraps goccy/go-json with pooled buffers and a streaming
// array encoder used for metadata envelopes, exports and model artifacts.
package json

import (
	"bytes"
	"io"

	gojson "github.com/goccy/go-json"

	"github.com/ajitpratap0/refinery/pkg/pool"
)

var bufferPool = pool.New(
	func() *bytes.Buffer { return bytes.NewBuffer(make([]byte, 0, 4096)) },
	func(b *bytes.Buffer) { b.Reset() },
)

// GetBuffer gets a pooled bytes.Buffer
func GetBuffer() *bytes.Buffer {
	return bufferPool.Get()
}

// PutBuffer returns a buffer to the pool
func PutBuffer(buf *bytes.Buffer) {
	if buf.Cap() > 1024*1024 { // Don't pool very large buffers
		bufferPool.Discard(buf)
		return
	}
	bufferPool.Put(buf)
}

// BufferStats reports the buffer pool statistics.
func BufferStats() pool.Stats { return bufferPool.Stats() }

// Marshal is a drop-in replacement for encoding/json.Marshal
func Marshal(v interface{}) ([]byte, error) {
	return gojson.Marshal(v)
}

// Unmarshal is a drop-in replacement for encoding/json.Unmarshal
func Unmarshal(data []byte, v interface{}) error {
	return gojson.Unmarshal(data, v)
}

// MarshalIndent is a drop-in replacement for encoding/json.MarshalIndent
func MarshalIndent(v interface{}, prefix, indent string) ([]byte, error) {
	return gojson.MarshalIndent(v, prefix, indent)
}

// NewEncoder returns an encoder that does not escape HTML.
func NewEncoder(w io.Writer) *gojson.Encoder {
	enc := gojson.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc
}

// NewDecoder returns a decoder that keeps numbers as json.Number.
func NewDecoder(r io.Reader) *gojson.Decoder {
	dec := gojson.NewDecoder(r)
	dec.UseNumber()
	return dec
}

// MarshalToWriter marshals v directly to a writer
func MarshalToWriter(w io.Writer, v interface{}) error {
	return NewEncoder(w).Encode(v)
}

// StreamingEncoder writes values one at a time, either as a JSON array or
// as line-delimited JSON.
type StreamingEncoder struct {
	writer      io.Writer
	firstRecord bool
	isArray     bool
	pretty      bool
	indent      string
}

// NewStreamingEncoder creates a new streaming encoder. In array mode the
// opening bracket is written immediately.
func NewStreamingEncoder(w io.Writer, isArray bool) (*StreamingEncoder, error) {
	se := &StreamingEncoder{
		writer:      w,
		firstRecord: true,
		isArray:     isArray,
	}
	if isArray {
		if _, err := w.Write([]byte{'['}); err != nil {
			return nil, err
		}
	}
	return se, nil
}

// SetPretty enables pretty printing
func (se *StreamingEncoder) SetPretty(pretty bool, indent string) {
	se.pretty = pretty
	se.indent = indent
}

// Encode encodes a single value
func (se *StreamingEncoder) Encode(v interface{}) error {
	buf := GetBuffer()
	defer PutBuffer(buf)

	if se.isArray && !se.firstRecord {
		buf.WriteByte(',')
	}
	if se.isArray && se.pretty {
		buf.WriteByte('\n')
		buf.WriteString(se.indent)
	}
	se.firstRecord = false

	var (
		data []byte
		err  error
	)
	if se.pretty {
		data, err = gojson.MarshalIndent(v, se.indent, se.indent)
	} else {
		data, err = gojson.Marshal(v)
	}
	if err != nil {
		return err
	}
	buf.Write(data)
	if !se.isArray {
		buf.WriteByte('\n')
	}

	_, err = se.writer.Write(buf.Bytes())
	return err
}

// Close finalizes the encoding
func (se *StreamingEncoder) Close() error {
	if !se.isArray {
		return nil
	}
	closing := []byte{']'}
	if se.pretty && !se.firstRecord {
		closing = []byte{'\n', ']'}
	}
	_, err := se.writer.Write(closing)
	return err
}
