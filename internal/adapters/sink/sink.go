// Package sink implements ports.RecordWriter for line-oriented outputs.
package sink

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bft-labs/topicmap/internal/domain"
	"github.com/bft-labs/topicmap/internal/jsoncodec"
	"github.com/bft-labs/topicmap/internal/ports"
)

// Output formats accepted by New.
const (
	FormatLine = "line"
	FormatJSON = "json"
)

// New returns a writer for the given format.
func New(format string, w io.Writer) (ports.RecordWriter, error) {
	switch strings.ToLower(format) {
	case FormatLine, "":
		return NewLineWriter(w), nil
	case FormatJSON:
		return NewJSONWriter(w), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// LineWriter writes records in InfluxDB line protocol, one point per line,
// without a timestamp.
type LineWriter struct {
	w *bufio.Writer
}

// NewLineWriter creates a LineWriter.
func NewLineWriter(w io.Writer) *LineWriter {
	return &LineWriter{w: bufio.NewWriter(w)}
}

// Line breaks are written as \n and \r so that every record stays on one line.
var (
	measurementEscaper = strings.NewReplacer(`,`, `\,`, ` `, `\ `, "\n", `\n`, "\r", `\r`)
	keyEscaper         = strings.NewReplacer(`,`, `\,`, `=`, `\=`, ` `, `\ `, "\n", `\n`, "\r", `\r`)
	stringEscaper      = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`)
)

func (l *LineWriter) Write(_ string, records []domain.Record) error {
	for _, r := range records {
		line := measurementEscaper.Replace(r.Measurement) + " " +
			keyEscaper.Replace(r.Field) + "=" + lineValue(r.Value) + "\n"
		if _, err := l.w.WriteString(line); err != nil {
			return err
		}
	}
	return nil
}

func (l *LineWriter) Flush() error {
	return l.w.Flush()
}

func lineValue(v any) string {
	switch x := v.(type) {
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10) + "i"
	case bool:
		return strconv.FormatBool(x)
	case string:
		return `"` + stringEscaper.Replace(x) + `"`
	default:
		return `"` + stringEscaper.Replace(fmt.Sprint(x)) + `"`
	}
}

// JSONWriter writes one JSON object per record.
type JSONWriter struct {
	w *bufio.Writer
}

// NewJSONWriter creates a JSONWriter.
func NewJSONWriter(w io.Writer) *JSONWriter {
	return &JSONWriter{w: bufio.NewWriter(w)}
}

type jsonRecord struct {
	Topic       string `json:"topic"`
	Measurement string `json:"measurement"`
	Field       string `json:"field"`
	Value       any    `json:"value"`
}

func (j *JSONWriter) Write(topic string, records []domain.Record) error {
	for _, r := range records {
		err := jsoncodec.Encode(j.w, jsonRecord{
			Topic:       topic,
			Measurement: r.Measurement,
			Field:       r.Field,
			Value:       r.Value,
		})
		if err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
	}
	return nil
}

func (j *JSONWriter) Flush() error {
	return j.w.Flush()
}

var (
	_ ports.RecordWriter = (*LineWriter)(nil)
	_ ports.RecordWriter = (*JSONWriter)(nil)
)
