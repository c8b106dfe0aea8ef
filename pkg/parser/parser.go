// Package parser turns raw performance-test logs into reports.
//
// Every log convention is a Parser; the summarizer convention is the only
// one built in. A file is always parsed on its own: parsers never share
// state between files.
package parser

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/mslinn/perftrend/pkg/report"
)

// Format names a log convention
type Format string

const (
	FormatSummarizer Format = "summarizer"
	FormatXML        Format = "xml"
)

var (
	// ErrUnsupportedFormat is returned for a format without a parser
	ErrUnsupportedFormat = errors.New("unsupported log format")

	// ErrMalformedLine marks a line whose tokens could not be read
	ErrMalformedLine = errors.New("malformed line")

	// ErrFileUnavailable marks a file that could not be opened or read
	ErrFileUnavailable = errors.New("file unavailable")
)

// Parser produces a report from one log stream
type Parser interface {
	Format() Format

	// Parse returns a non-nil Result whenever it read anything; on a read
	// failure the Result holds the lines before it
	Parse(r io.Reader, sourceName string) (*Result, error)
}

// Result holds the report of one file together with what was skipped
type Result struct {
	Path         string
	Report       *report.Report
	TotalLines   int
	SummaryLines int
	Skipped      []LineError
}

// LineError describes a line that was skipped because its tokens were malformed
type LineError struct {
	Line int
	Text string
	Err  error
}

func (e LineError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e LineError) Unwrap() error { return e.Err }

// FileError describes a file that could not be opened or read to its end
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// Is lets errors.Is match ErrFileUnavailable for any FileError
func (e *FileError) Is(target error) bool {
	return target == ErrFileUnavailable
}

// Options configures parser construction
type Options struct {
	Marker string      // Summarizer marker; DefaultMarker when empty
	Logger *zap.Logger // Defaults to a no-op logger
}

// NewParser returns the parser for format
func NewParser(format Format, opts *Options) (Parser, error) {
	if opts == nil {
		opts = &Options{}
	}

	switch format {
	case FormatSummarizer, "":
		return NewSummarizer(opts), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}
