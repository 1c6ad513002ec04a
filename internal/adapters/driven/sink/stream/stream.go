// Package stream provides a sink that writes emitted items to a writer,
// one JSON line or YAML document per item.
package stream

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/cmis-poller/internal/core/domain"
	"github.com/custodia-labs/cmis-poller/internal/core/ports/driven"
	"github.com/custodia-labs/cmis-poller/internal/logger"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// DefaultMaxContentSize caps the content one record carries. Records are
// written in a single Write, so each is held in memory whole.
const DefaultMaxContentSize = 16 << 20

// Record is one unit written to the stream: an item or a poll summary.
type Record struct {
	Endpoint   string            `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Properties domain.Properties `json:"properties,omitempty" yaml:"properties,omitempty"`

	// Content is the base64-encoded content stream. Empty when the item had none.
	Content  string `json:"content,omitempty" yaml:"content,omitempty"`
	MimeType string `json:"mimeType,omitempty" yaml:"mimeType,omitempty"`

	// Summary is set only on the trailing record of a query-mode poll.
	Summary domain.Properties `json:"summary,omitempty" yaml:"summary,omitempty"`
}

// Sink writes records to w. Each record is written with a single Write call.
type Sink struct {
	mu             sync.Mutex
	w              io.Writer
	format         string
	endpoint       string
	maxContentSize int64
}

var _ driven.SummarySink = (*Sink)(nil)

// New creates a stream sink. An empty format selects JSON.
func New(w io.Writer, format, endpointID string) (*Sink, error) {
	switch format {
	case "":
		format = FormatJSON
	case FormatJSON, FormatYAML:
	default:
		return nil, fmt.Errorf("%w: stream format %q", domain.ErrUnsupportedType, format)
	}
	return &Sink{w: w, format: format, endpoint: endpointID, maxContentSize: DefaultMaxContentSize}, nil
}

// Emit writes one item. The content stream, when present, is read and
// closed; content larger than the sink's cap fails the item.
func (s *Sink) Emit(ctx context.Context, item domain.EmittedItem) (int, error) {
	defer item.Content.Close()

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	rec := Record{
		Endpoint:   s.endpoint,
		Properties: item.Properties,
	}
	if item.HasContent() {
		body, err := s.readContent(item)
		if err != nil {
			return 0, err
		}
		rec.Content = base64.StdEncoding.EncodeToString(body)
		rec.MimeType = item.Content.MimeType
	}

	if err := s.write(rec); err != nil {
		return 0, err
	}
	logger.Debug("stream: wrote %s", item.Name())
	return 1, nil
}

func (s *Sink) readContent(item domain.EmittedItem) ([]byte, error) {
	if item.Content.Length > s.maxContentSize {
		return nil, s.tooLarge(item)
	}

	body, err := io.ReadAll(io.LimitReader(item.Content, s.maxContentSize+1))
	if err != nil {
		return nil, fmt.Errorf("read content of %s: %w", item.Name(), err)
	}
	if int64(len(body)) > s.maxContentSize {
		return nil, s.tooLarge(item)
	}
	return body, nil
}

func (s *Sink) tooLarge(item domain.EmittedItem) error {
	return fmt.Errorf("%w: content of %s exceeds %d bytes", domain.ErrInvalidInput, item.Name(), s.maxContentSize)
}

// Summary writes the trailing summary record.
func (s *Sink) Summary(_ context.Context, props domain.Properties) error {
	return s.write(Record{Endpoint: s.endpoint, Summary: props})
}

func (s *Sink) write(rec Record) error {
	buf, err := s.encode(rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(buf); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

func (s *Sink) encode(rec Record) ([]byte, error) {
	var buf bytes.Buffer
	switch s.format {
	case FormatYAML:
		buf.WriteString("---\n")
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("encode yaml record: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode yaml record: %w", err)
		}
	default:
		if err := json.NewEncoder(&buf).Encode(rec); err != nil {
			return nil, fmt.Errorf("encode json record: %w", err)
		}
	}
	return buf.Bytes(), nil
}

// SyncWriter serialises writes to w so several sinks can share it.
func SyncWriter(w io.Writer) io.Writer {
	if sw, ok := w.(*syncWriter); ok {
		return sw
	}
	return &syncWriter{w: w}
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
