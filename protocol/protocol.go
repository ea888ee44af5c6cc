// Package protocol parses the reply lines of common text protocols: POP3
// status indicators, SMTP/FTP numeric replies and HTTP status lines.
package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cykyes/textwire/frame"
)

// POP3 status indicators.
const (
	IndicatorOK  = "+OK"
	IndicatorErr = "-ERR"
)

// DotLine ends a POP3 multi-line body.
const DotLine = "."

var (
	// ErrMalformed is wrapped by every parse error.
	ErrMalformed = errors.New("protocol: malformed line")
)

// LineReader is satisfied by *frame.Framer.
type LineReader interface {
	ReadLine() (string, frame.Result)
}

// Status is a POP3 "+OK ..." or "-ERR ..." reply.
type Status struct {
	OK   bool
	Text string
}

// ParseStatus parses a POP3 status line. The indicator is case-sensitive.
func ParseStatus(line string) (Status, error) {
	var (
		ok   bool
		rest string
	)
	switch {
	case strings.HasPrefix(line, IndicatorOK):
		ok, rest = true, line[len(IndicatorOK):]
	case strings.HasPrefix(line, IndicatorErr):
		ok, rest = false, line[len(IndicatorErr):]
	default:
		return Status{}, fmt.Errorf("%w: no status indicator in %q", ErrMalformed, line)
	}
	if rest != "" && rest[0] != ' ' {
		return Status{}, fmt.Errorf("%w: no space after status indicator in %q", ErrMalformed, line)
	}
	return Status{OK: ok, Text: strings.TrimPrefix(rest, " ")}, nil
}

// CodeLine is one line of an SMTP or FTP reply: "250-text" continues the
// reply, "250 text" ends it.
type CodeLine struct {
	Code int
	More bool
	Text string
}

// ParseCodeLine parses a three-digit reply line.
func ParseCodeLine(line string) (CodeLine, error) {
	if len(line) < 3 {
		return CodeLine{}, fmt.Errorf("%w: reply line too short: %q", ErrMalformed, line)
	}
	code, ok := parseCode(line[:3])
	if !ok {
		return CodeLine{}, fmt.Errorf("%w: no reply code in %q", ErrMalformed, line)
	}

	cl := CodeLine{Code: code}
	if len(line) == 3 {
		return cl, nil
	}
	switch line[3] {
	case '-':
		cl.More = true
	case ' ':
	default:
		return CodeLine{}, fmt.Errorf("%w: bad separator after reply code in %q", ErrMalformed, line)
	}
	cl.Text = line[4:]
	return cl, nil
}

func parseCode(s string) (int, bool) {
	if len(s) != 3 {
		return 0, false
	}
	code := 0
	for i := 0; i < 3; i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		code = code*10 + int(c-'0')
	}
	return code, code >= 100
}

// StatusLine is the first line of an HTTP response.
type StatusLine struct {
	Proto  string // "HTTP/1.1"
	Major  int
	Minor  int
	Code   int
	Reason string
}

// ParseStatusLine parses "HTTP/x.y code reason". The reason may be empty.
func ParseStatusLine(line string) (StatusLine, error) {
	proto, rest, ok := strings.Cut(line, " ")
	if !ok {
		return StatusLine{}, fmt.Errorf("%w: status line %q", ErrMalformed, line)
	}
	version, found := strings.CutPrefix(proto, "HTTP/")
	if !found {
		return StatusLine{}, fmt.Errorf("%w: unknown protocol in %q", ErrMalformed, line)
	}
	majorStr, minorStr, ok := strings.Cut(version, ".")
	if !ok {
		return StatusLine{}, fmt.Errorf("%w: bad version in %q", ErrMalformed, line)
	}
	major, err := strconv.Atoi(majorStr)
	if err != nil {
		return StatusLine{}, fmt.Errorf("%w: bad version in %q", ErrMalformed, line)
	}
	minor, err := strconv.Atoi(minorStr)
	if err != nil {
		return StatusLine{}, fmt.Errorf("%w: bad version in %q", ErrMalformed, line)
	}

	codeStr, reason, _ := strings.Cut(rest, " ")
	code, ok := parseCode(codeStr)
	if !ok {
		return StatusLine{}, fmt.Errorf("%w: bad status code in %q", ErrMalformed, line)
	}

	return StatusLine{
		Proto:  proto,
		Major:  major,
		Minor:  minor,
		Code:   code,
		Reason: reason,
	}, nil
}

// Reply is a complete SMTP or FTP reply.
type Reply struct {
	Code  int
	Lines []string
}

// Text joins the reply lines with newlines.
func (r *Reply) Text() string {
	return strings.Join(r.Lines, "\n")
}

// Positive reports a 1xx, 2xx or 3xx reply.
func (r *Reply) Positive() bool {
	return r.Code < 400
}

// ReadReply reads one SMTP or FTP reply. A reply ends at the first line
// carrying the opening code without a continuation dash. Lines in between
// that do not carry that code are kept verbatim, as FTP allows.
func ReadReply(r LineReader) (*Reply, frame.Result) {
	line, res := r.ReadLine()
	if !res.OK() {
		return nil, res
	}
	first, err := ParseCodeLine(line)
	if err != nil {
		return nil, frame.Result{Status: frame.StatusError, Err: err}
	}

	reply := &Reply{Code: first.Code, Lines: []string{first.Text}}
	for more := first.More; more; {
		line, res := r.ReadLine()
		if !res.OK() {
			return reply, res
		}
		cl, err := ParseCodeLine(line)
		if err != nil || cl.Code != first.Code {
			reply.Lines = append(reply.Lines, line)
			continue
		}
		reply.Lines = append(reply.Lines, cl.Text)
		more = cl.More
	}
	return reply, frame.Result{}
}

// ReadStatus reads and parses one POP3 status line.
func ReadStatus(r LineReader) (Status, frame.Result) {
	line, res := r.ReadLine()
	if !res.OK() {
		return Status{}, res
	}
	st, err := ParseStatus(line)
	if err != nil {
		return Status{}, frame.Result{Status: frame.StatusError, Err: err}
	}
	return st, frame.Result{}
}

// ReadDotLines reads a POP3 multi-line body up to the lone "." line and
// removes the byte-stuffed leading dot from the lines in between.
func ReadDotLines(r LineReader) ([]string, frame.Result) {
	var lines []string
	for {
		line, res := r.ReadLine()
		if !res.OK() {
			return lines, res
		}
		if line == DotLine {
			return lines, frame.Result{}
		}
		if strings.HasPrefix(line, "..") {
			line = line[1:]
		}
		lines = append(lines, line)
	}
}
