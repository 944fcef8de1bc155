// Package testenv provides stores, fixtures and log capture for the tests of the
// outline engine.
package testenv

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// LogBuffer collects log output; it is safe for concurrent use.
type LogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *LogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Lines returns the non-empty lines written so far.
func (b *LogBuffer) Lines() []string {
	var out []string
	for _, l := range strings.Split(b.String(), "\n") {
		if l != "" {
			out = append(out, l)
		}
	}
	return out
}

// indexWriter prefixes every event with its index, starting from 0.
type indexWriter struct {
	mu    sync.Mutex
	index int
	out   io.Writer
}

func (w *indexWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := fmt.Fprintf(w.out, "[%d] ", w.index); err != nil {
		return 0, err
	}
	w.index++
	return w.out.Write(p)
}

// NewTestLogger returns a debug level logger that prints message index, level,
// message and fields sorted by key, without the timestamp. This allows test log
// output to be deterministic:
//
//	[0] warn: stored root block disagrees with tree derived=1 page=3 stored=2
func NewTestLogger(w io.Writer) zerolog.Logger {
	cw := zerolog.ConsoleWriter{
		Out:          &indexWriter{out: w},
		NoColor:      true,
		PartsExclude: []string{zerolog.TimestampFieldName},
		FormatLevel: func(i any) string {
			return fmt.Sprintf("%s:", i)
		},
	}
	return zerolog.New(cw).Level(zerolog.DebugLevel)
}
