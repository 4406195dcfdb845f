// Package ilog sets up the dlog-backed logging this module uses
// everywhere a context.Context is threaded through: one logrus logger with
// a module-specific formatter, wrapped into a dlog.Logger and attached to
// the base context.
package ilog

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/datawire/dlib/dlog"
)

// Formatter renders one line per entry: a timestamp, the message, then any
// structured fields sorted by key as key=value pairs.
type Formatter struct {
	timestampFormat string
}

// NewFormatter builds a Formatter using timestampFormat for entry.Time.
func NewFormatter(timestampFormat string) *Formatter {
	return &Formatter{timestampFormat: timestampFormat}
}

// Format implements logrus.Formatter.
func (f *Formatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b *bytes.Buffer
	if entry.Buffer != nil {
		b = entry.Buffer
	} else {
		b = &bytes.Buffer{}
	}
	b.WriteString(entry.Time.Format(f.timestampFormat))
	b.WriteByte(' ')
	b.WriteString(entry.Message)

	if len(entry.Data) > 0 {
		keys := make([]string, 0, len(entry.Data))
		for k := range entry.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(b, " %s=%+v", k, entry.Data[k])
		}
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

// defaultTimestampFormat is the fallback used when no format is configured.
const defaultTimestampFormat = "2006-01-02 15:04:05.0000"

// WithLevel parses level (one of logrus's level names; "" defaults to
// info) and returns a context carrying a dlog.Logger configured with it.
func WithLevel(ctx context.Context, level string) context.Context {
	logger := logrus.New()
	logger.SetFormatter(NewFormatter(defaultTimestampFormat))

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)

	wrapped := dlog.WrapLogrus(logger)
	dlog.SetFallbackLogger(wrapped)
	return dlog.WithLogger(ctx, wrapped)
}
