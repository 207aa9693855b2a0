// Package app wires the mapping core to its input, its record sink and its
// configuration source.
package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/bft-labs/topicmap/internal/domain"
	"github.com/bft-labs/topicmap/internal/mapping"
	"github.com/bft-labs/topicmap/internal/ports"
)

// maxLineBytes bounds a single input line (topic, separator and payload).
const maxLineBytes = 4 << 20

// UnknownTopic is the topic reported to an Observer for messages whose topic
// has no mappings, keeping the set of reported topics bounded.
const UnknownTopic = "<unknown>"

// Message outcomes reported to an Observer.
const (
	ResultMapped = "mapped"
	ResultEmpty  = "empty"
	ResultError  = "error"
)

// Observer is notified about processed messages and configuration reloads.
type Observer interface {
	ObserveMessage(topic, result string, measurements []string)
	ObserveReload(ok bool)
}

// PipelineConfig contains configuration for the pipeline loop.
type PipelineConfig struct {
	// Separator splits an input line into topic and payload at its first occurrence.
	Separator string
	// Strict stops the pipeline on the first unknown topic or binary payload.
	Strict bool
}

// Stats summarizes a pipeline run.
type Stats struct {
	Messages uint64
	Records  uint64
	Empty    uint64
	Errors   uint64
}

// Pipeline reads "topic<sep>payload" lines, maps them and writes the records.
// The mapper can be swapped while Run is in progress.
type Pipeline struct {
	config   PipelineConfig
	mapper   atomic.Pointer[mapping.Mapper]
	writer   ports.RecordWriter
	logger   ports.Logger
	observer Observer
	stats    Stats
}

// NewPipeline creates a pipeline. observer may be nil.
func NewPipeline(config PipelineConfig, mapper *mapping.Mapper, writer ports.RecordWriter, logger ports.Logger, observer Observer) *Pipeline {
	if config.Separator == "" {
		config.Separator = " "
	}
	p := &Pipeline{
		config:   config,
		writer:   writer,
		logger:   logger,
		observer: observer,
	}
	p.mapper.Store(mapper)
	return p
}

// Mapper returns the mapper currently in use.
func (p *Pipeline) Mapper() *mapping.Mapper {
	return p.mapper.Load()
}

// SetMapper replaces the mapper used for subsequent messages.
func (p *Pipeline) SetMapper(m *mapping.Mapper) {
	p.mapper.Store(m)
}

// Stats returns the counters of the current run.
func (p *Pipeline) Stats() Stats {
	return p.stats
}

// Run processes r line by line until EOF, a read error, ctx cancellation or,
// in strict mode, the first unrecoverable mapping error. Records are flushed
// before returning.
//
// Lines are read on a separate goroutine so that cancellation ends the run
// even while a read is blocked. If r is an io.Closer it is closed on
// cancellation to release that goroutine.
func (p *Pipeline) Run(ctx context.Context, r io.Reader) (err error) {
	defer func() {
		if ferr := p.writer.Flush(); ferr != nil && err == nil {
			err = fmt.Errorf("flush records: %w", ferr)
		}
	}()

	if c, ok := r.(io.Closer); ok {
		stop := context.AfterFunc(ctx, func() { _ = c.Close() })
		defer stop()
	}

	done := make(chan struct{})
	defer close(done)
	lines, readErr := p.readLines(r, done)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := <-readErr; err != nil {
					return fmt.Errorf("read input: %w", err)
				}
				return nil
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			if err := p.Process(line); err != nil {
				return err
			}
		}
	}
}

// readLines scans r until EOF, a read error or done is closed. The lines
// channel is closed when scanning stops; readErr then holds the scan error.
func (p *Pipeline) readLines(r io.Reader, done <-chan struct{}) (<-chan string, <-chan error) {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		readErr <- scanner.Err()
	}()
	return lines, readErr
}

// Process handles one input line. It only returns an error when the record
// sink fails or, in strict mode, when the mapper rejects the message.
func (p *Pipeline) Process(line string) error {
	topic, payload, _ := strings.Cut(line, p.config.Separator)
	topic = strings.TrimSpace(topic)
	p.stats.Messages++

	mapper := p.Mapper()
	label := topic
	if !mapper.HasTopic(topic) {
		label = UnknownTopic
	}

	records, err := mapper.Resolve(topic, []byte(payload))
	if err != nil {
		p.stats.Errors++
		p.observe(label, ResultError, nil)
		p.logger.Error("cannot map message", ports.String("topic", topic), ports.Err(err))
		if p.config.Strict || !recoverable(err) {
			return err
		}
		return nil
	}

	if len(records) == 0 {
		p.stats.Empty++
		p.observe(label, ResultEmpty, nil)
		return nil
	}

	if err := p.writer.Write(topic, records); err != nil {
		return fmt.Errorf("write records: %w", err)
	}
	p.stats.Records += uint64(len(records))

	measurements := make([]string, len(records))
	for i, r := range records {
		measurements[i] = r.Measurement
	}
	p.observe(label, ResultMapped, measurements)
	return nil
}

func (p *Pipeline) observe(topic, result string, measurements []string) {
	if p.observer != nil {
		p.observer.ObserveMessage(topic, result, measurements)
	}
}

// recoverable reports whether the pipeline may skip the message and go on.
func recoverable(err error) bool {
	return errors.Is(err, domain.ErrUnknownTopic) || errors.Is(err, domain.ErrInvalidMessageType)
}
