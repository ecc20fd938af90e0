package execscan

import (
	"fmt"
	"io"
	"os"
)

// Result holds the line counts for one classified source.
// Executable never exceeds Total.
type Result struct {
	Total      int `json:"total_lines"`
	Executable int `json:"executable_lines"`
}

// Blank reports whether the source produced no lines at all. Callers must
// present a dedicated message for blank sources instead of a ratio.
func (r Result) Blank() bool {
	return r.Total == 0
}

// Percent returns the share of executable lines as a percentage.
// ok is false for a blank result, in which case no ratio exists.
func (r Result) Percent() (pct float64, ok bool) {
	if r.Total == 0 {
		return 0, false
	}
	return float64(r.Executable) / float64(r.Total) * 100, true
}

// LineVerdict records how a single line was classified.
type LineVerdict struct {
	Number        int    `json:"line"` // 1-based
	Text          string `json:"text"`
	Executable    bool   `json:"executable"`
	InTripleQuote bool   `json:"in_triple_quote"` // scanner state after the line
}

// ClassifyOption configures a Classifier.
type ClassifyOption func(*Classifier)

// WithMatchingQuotes makes a quote run count only identical quote characters,
// so `"'"` no longer opens or closes a triple-quoted block. The default
// counts single and double quotes in one shared run.
func WithMatchingQuotes() ClassifyOption {
	return func(c *Classifier) {
		c.matchingQuotes = true
	}
}

// Classifier is the scanner state for one source. It is not safe for
// concurrent use; create one per file.
type Classifier struct {
	inTripleQuote  bool
	quoteRun       int
	lastQuote      byte
	matchingQuotes bool
	result         Result
}

// NewClassifier returns a Classifier positioned at the start of a source.
func NewClassifier(opts ...ClassifyOption) *Classifier {
	c := &Classifier{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Line consumes the next line of the source and reports whether it counts as
// executable. A trailing "\n" or "\r\n" is ignored.
func (c *Classifier) Line(line string) bool {
	line = trimEOL(line)
	c.result.Total++

	// Decided before the quote scan; a block carried over from the previous
	// line starts the line as non-executable.
	executable := false
	if !c.inTripleQuote {
		executable = !startsNonExecutable(line)
	}

	// The end-of-line marker is a non-quote character, so runs never span lines.
	c.quoteRun = 0
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if !isQuote(ch) {
			c.quoteRun = 0
			continue
		}
		if c.matchingQuotes && c.quoteRun > 0 && ch != c.lastQuote {
			c.quoteRun = 0
		}
		c.lastQuote = ch
		c.quoteRun++
		if c.quoteRun == 3 {
			c.quoteRun = 0
			c.inTripleQuote = !c.inTripleQuote
			executable = !c.inTripleQuote
		}
	}

	if executable {
		c.result.Executable++
	}
	return executable
}

// InTripleQuote reports whether the scanner is inside an open triple-quoted block.
func (c *Classifier) InTripleQuote() bool {
	return c.inTripleQuote
}

// Result returns the counts accumulated so far.
func (c *Classifier) Result() Result {
	return c.result
}

// startsNonExecutable reports whether a line outside any triple-quoted block
// is blank, a comment, or starts with a triple-quote opener. Only space
// characters are skipped.
func startsNonExecutable(line string) bool {
	i := 0
	for i < len(line) && line[i] == ' ' {
		i++
	}
	if i == len(line) {
		return true
	}
	switch ch := line[i]; ch {
	case '#':
		return true
	case '"', '\'':
		return i+2 < len(line) && line[i+1] == ch && line[i+2] == ch
	}
	return false
}

func isQuote(ch byte) bool {
	return ch == '"' || ch == '\''
}

// ClassifyLines classifies an in-memory sequence of lines.
func ClassifyLines(lines []string, opts ...ClassifyOption) Result {
	c := NewClassifier(opts...)
	for _, line := range lines {
		c.Line(line)
	}
	return c.Result()
}

// ClassifyReader classifies every line read from r. The only error source is
// r itself; content never causes a failure.
func ClassifyReader(r io.Reader, opts ...ClassifyOption) (Result, error) {
	c := NewClassifier(opts...)
	err := eachLine(r, func(line string) {
		c.Line(line)
	})
	if err != nil {
		return Result{}, err
	}
	return c.Result(), nil
}

// ClassifyFile opens the file at path, classifies it and closes it.
func ClassifyFile(path string, opts ...ClassifyOption) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("execscan: open %s: %w", path, err)
	}
	defer f.Close()

	res, err := ClassifyReader(f, opts...)
	if err != nil {
		return Result{}, fmt.Errorf("execscan: read %s: %w", path, err)
	}
	return res, nil
}

// TraceReader classifies r like ClassifyReader and also returns the verdict
// for every line.
func TraceReader(r io.Reader, opts ...ClassifyOption) ([]LineVerdict, Result, error) {
	c := NewClassifier(opts...)
	var verdicts []LineVerdict
	err := eachLine(r, func(line string) {
		exec := c.Line(line)
		verdicts = append(verdicts, LineVerdict{
			Number:        c.result.Total,
			Text:          trimEOL(line),
			Executable:    exec,
			InTripleQuote: c.inTripleQuote,
		})
	})
	if err != nil {
		return nil, Result{}, err
	}
	return verdicts, c.Result(), nil
}
