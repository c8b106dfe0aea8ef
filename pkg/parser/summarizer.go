package parser

import (
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mslinn/perftrend/pkg/report"
)

// DefaultMarker identifies the lines written by JMeter's summariser
const DefaultMarker = "jmeter.reporters.Summariser:"

// countPattern matches the "  80 in 17.5s  " fragment of a summary line
var countPattern = regexp.MustCompile(`\s*([0-9]+)\s*in\s*([0-9.]+)s\s*`)

// stampPattern matches a leading date/time, e.g. "2012/02/06 12:45:24"
var stampPattern = regexp.MustCompile(`^\s*(\d{4})[/-](\d{2})[/-](\d{2})[ T](\d{2}):(\d{2}):(\d{2})`)

// Summarizer parses periodic summary logs. Each line already aggregates many
// requests, so a later line for the same key replaces the earlier one.
type Summarizer struct {
	marker string
	logger *zap.Logger
}

// NewSummarizer returns a summarizer parser
func NewSummarizer(opts *Options) *Summarizer {
	s := &Summarizer{marker: DefaultMarker, logger: zap.NewNop()}
	if opts != nil {
		if opts.Marker != "" {
			s.marker = opts.Marker
		}
		if opts.Logger != nil {
			s.logger = opts.Logger
		}
	}
	return s
}

// Format implements Parser
func (p *Summarizer) Format() Format { return FormatSummarizer }

// maxLineBytes bounds the text kept for one line. Longer lines are read to
// their end and skipped.
const maxLineBytes = 1024 * 1024

// Parse reads r line by line. Malformed and over-long lines are skipped and
// listed in Result.Skipped. A read failure returns the lines parsed so far
// together with a *FileError.
func (p *Summarizer) Parse(r io.Reader, sourceName string) (*Result, error) {
	res := &Result{
		Path:   sourceName,
		Report: report.New(filepath.Base(sourceName), string(FormatSummarizer)),
	}
	if sourceName == "" {
		res.Report.SourceName = ""
	}

	br := bufio.NewReaderSize(r, 64*1024)

	for {
		raw, tooLong, err := readLine(br)
		if err == io.EOF {
			break
		}
		if err != nil {
			return res, &FileError{Path: sourceName, Err: fmt.Errorf("failed to read line %d: %w", res.TotalLines+1, err)}
		}
		res.TotalLines++

		var sample report.Sample
		ok := false
		if tooLong {
			err = fmt.Errorf("%w: longer than %d bytes", ErrMalformedLine, maxLineBytes)
		} else {
			sample, ok, err = p.parseLine(raw)
		}
		if err != nil {
			res.Skipped = append(res.Skipped, LineError{Line: res.TotalLines, Text: raw, Err: err})
			p.logger.Debug("skipping summarizer line",
				zap.String("file", sourceName),
				zap.Int("line", res.TotalLines),
				zap.Error(err))
			continue
		}
		if !ok {
			continue
		}

		p.logger.Debug("summarizer line", zap.String("file", sourceName), zap.String("key", sample.Key))
		res.SummaryLines++
		res.Report.Put(sample)
	}

	return res, nil
}

// readLine returns the next line without its terminator. A line over
// maxLineBytes is consumed to its end; only its first bytes are returned and
// tooLong is set.
func readLine(br *bufio.Reader) (string, bool, error) {
	var buf []byte
	read, tooLong := false, false
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err != nil {
			if err == io.EOF && read {
				return string(buf), tooLong, nil
			}
			return "", false, err
		}
		read = true

		if !tooLong {
			if len(buf)+len(chunk) > maxLineBytes {
				tooLong = true
				if len(buf) > 256 {
					buf = buf[:256]
				}
			} else {
				buf = append(buf, chunk...)
			}
		}
		if !isPrefix {
			return string(buf), tooLong, nil
		}
	}
}

// parseLine returns ok=false for lines that are not summary lines at all
func (p *Summarizer) parseLine(raw string) (report.Sample, bool, error) {
	line := strings.ReplaceAll(raw, "=", " ")
	if strings.Contains(line, "+") {
		return report.Sample{}, false, nil
	}

	idx := strings.Index(line, p.marker)
	if idx < 0 {
		return report.Sample{}, false, nil
	}
	rest := line[idx+len(p.marker):]

	loc := countPattern.FindStringSubmatchIndex(rest)
	if loc == nil {
		return report.Sample{}, false, nil
	}

	count, err := strconv.ParseInt(rest[loc[2]:loc[3]], 10, 64)
	if err != nil {
		return report.Sample{}, false, fmt.Errorf("%w: sample count: %v", ErrMalformedLine, err)
	}
	window, err := strconv.ParseFloat(rest[loc[4]:loc[5]], 64)
	if err != nil {
		return report.Sample{}, false, fmt.Errorf("%w: window: %v", ErrMalformedLine, err)
	}

	summary := &report.Summary{SampleCount: count, WindowSeconds: window}
	if window != 0 {
		summary.Throughput = float64(count) / window
	}

	sample := report.Sample{
		Key:       strings.TrimSpace(rest[:loc[0]]),
		Timestamp: lineTime(line[:idx]),
		Success:   true,
		Summary:   summary,
	}

	tok := &tokens{fields: strings.Fields(rest[loc[1]:])}

	if sample.DurationMs, err = tok.int64After("Avg:"); err != nil {
		return report.Sample{}, false, err
	}
	if summary.MinMs, err = tok.int64After("Min:"); err != nil {
		return report.Sample{}, false, err
	}
	if summary.MaxMs, err = tok.int64After("Max:"); err != nil {
		return report.Sample{}, false, err
	}
	if summary.ErrorCount, err = tok.int64After("Err:"); err != nil {
		return report.Sample{}, false, err
	}

	pct, err := tok.next()
	if err != nil {
		return report.Sample{}, false, err
	}
	summary.ErrorPercent, err = strconv.ParseFloat(strings.Trim(pct, "()%"), 64)
	if err != nil {
		return report.Sample{}, false, fmt.Errorf("%w: error percent %q", ErrMalformedLine, pct)
	}
	if summary.ErrorPercent < 0 || summary.ErrorPercent > 100 {
		return report.Sample{}, false, fmt.Errorf("%w: error percent %v out of range", ErrMalformedLine, summary.ErrorPercent)
	}

	return sample, true, nil
}

// tokens walks whitespace-separated fields; each lookup resumes where the
// previous one stopped.
type tokens struct {
	fields []string
	pos    int
}

func (t *tokens) valueAfter(label string) (string, error) {
	for i := t.pos; i < len(t.fields); i++ {
		f := t.fields[i]
		if f == label {
			if i+1 >= len(t.fields) {
				return "", fmt.Errorf("%w: no value after %s", ErrMalformedLine, label)
			}
			t.pos = i + 2
			return t.fields[i+1], nil
		}
		if strings.HasPrefix(f, label) {
			t.pos = i + 1
			return f[len(label):], nil
		}
	}
	return "", fmt.Errorf("%w: missing %s", ErrMalformedLine, label)
}

func (t *tokens) int64After(label string) (int64, error) {
	v, err := t.valueAfter(label)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a number", ErrMalformedLine, label, v)
	}
	return n, nil
}

func (t *tokens) next() (string, error) {
	if t.pos >= len(t.fields) {
		return "", fmt.Errorf("%w: unexpected end of line", ErrMalformedLine)
	}
	t.pos++
	return t.fields[t.pos-1], nil
}

// lineTime reads the leading timestamp JMeter writes before the logger name
func lineTime(prefix string) time.Time {
	m := stampPattern.FindStringSubmatch(prefix)
	if m == nil {
		return time.Time{}
	}
	var v [6]int
	for i := range v {
		v[i], _ = strconv.Atoi(m[i+1])
	}
	return time.Date(v[0], time.Month(v[1]), v[2], v[3], v[4], v[5], 0, time.Local)
}

// ParseSummarizerLog parses summarizer text held in memory with the default marker
func ParseSummarizerLog(text string) *report.Report {
	// A strings.Reader never fails, so the report is always complete
	res, _ := NewSummarizer(nil).Parse(strings.NewReader(text), "")
	return res.Report
}
