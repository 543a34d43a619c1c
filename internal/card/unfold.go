package card

import (
	"bufio"
	"errors"
	"io"
	"strings"

	"github.com/tartampluch/go-vcf/internal/config"
)

// LineReader delivers one physical line at a time, terminator included.
// It returns io.EOF once the input is exhausted; a final unterminated
// fragment is returned together with io.EOF.
type LineReader interface {
	ReadLine() (string, error)
}

// bufferedLines adapts an io.Reader into a LineReader.
type bufferedLines struct {
	r *bufio.Reader
	// max bounds one physical line, terminator included. Zero means unbounded.
	max int
}

// NewLineReader splits r on '\n', keeping the raw terminator bytes so the
// unfolder can check them.
func NewLineReader(r io.Reader) LineReader {
	return &bufferedLines{r: bufio.NewReader(r)}
}

// oversizedLine reports a physical line longer than the reader's bound.
// The rest of that line has already been discarded.
type oversizedLine struct {
	continuation bool
}

func (oversizedLine) Error() string {
	return config.ErrLineTooLong
}

// ReadLine never holds more than max bytes of one physical line.
func (b *bufferedLines) ReadLine() (string, error) {
	var line []byte
	for {
		chunk, err := b.r.ReadSlice('\n')
		if b.max > 0 && len(line)+len(chunk) > b.max {
			lead := line
			if len(lead) == 0 {
				lead = chunk
			}
			over := oversizedLine{continuation: lead[0] == ' ' || lead[0] == '\t'}
			if errors.Is(err, bufio.ErrBufferFull) {
				err = b.discardLine()
			}
			if err != nil && !errors.Is(err, io.EOF) {
				return "", err
			}
			return "", over
		}
		line = append(line, chunk...)
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return string(line), err
	}
}

// discardLine skips input up to and including the next '\n'.
func (b *bufferedLines) discardLine() error {
	for {
		_, err := b.r.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
}

// sliceLines serves pre-split physical lines.
type sliceLines struct {
	lines []string
}

// LinesFrom returns a LineReader over lines already read by a collaborator.
// Each element must carry its own terminator.
func LinesFrom(lines []string) LineReader {
	return &sliceLines{lines: lines}
}

func (s *sliceLines) ReadLine() (string, error) {
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

// logicalLine is an unfolded content line and the physical line it started on.
type logicalLine struct {
	text string
	line int
}

// Unfolder merges continuation lines (those starting with a space or tab)
// into the preceding line. A line is only complete once the next
// non-continuation line, or the end of input, has been read.
type Unfolder struct {
	src     LineReader
	max     int
	physNo  int
	pending strings.Builder
	start   int
	eof     bool
	back    *logicalLine
	// err is reported by the call after the one returning the line it follows.
	err error
}

// NewUnfolder reads from src. maxLen bounds one logical line; values <= 0 select the default.
func NewUnfolder(src LineReader, maxLen int) *Unfolder {
	if maxLen <= 0 {
		maxLen = config.DefaultMaxLineLength
	}
	if b, ok := src.(*bufferedLines); ok {
		// A continuation may add its leading blank on top of the logical limit.
		b.max = maxLen + 1 + len(config.LineTerminator)
	}
	return &Unfolder{src: src, max: maxLen}
}

// Next returns the next non-empty logical line, or io.EOF.
// A missing CRLF or an oversized line is fatal for the record.
func (u *Unfolder) Next() (logicalLine, error) {
	if u.back != nil {
		l := *u.back
		u.back = nil
		return l, nil
	}
	if u.err != nil {
		err := u.err
		u.err = nil
		return logicalLine{}, err
	}

	for !u.eof {
		raw, err := u.src.ReadLine()
		var over oversizedLine
		if errors.As(err, &over) {
			u.physNo++
			tooLong := newError(InvalidFile, u.physNo, config.ErrLineTooLong)
			if over.continuation {
				u.pending.Reset()
				return logicalLine{}, tooLong
			}
			return u.deferError(tooLong)
		}
		if errors.Is(err, io.EOF) {
			u.eof = true
			if raw == "" {
				break
			}
		} else if err != nil {
			return logicalLine{}, wrapError(InvalidFile, config.ErrReadLine, err)
		}
		u.physNo++

		body, ok := strings.CutSuffix(raw, config.LineTerminator)
		if !ok {
			return logicalLine{}, newError(InvalidRecord, u.physNo, config.ErrLineTerminator)
		}

		if body != "" && (body[0] == ' ' || body[0] == '\t') {
			if err := u.appendPending(body[1:]); err != nil {
				return logicalLine{}, err
			}
			continue
		}

		done, ready := u.flush()
		if err := u.appendPending(body); err != nil {
			if ready {
				u.err = err
				return done, nil
			}
			return logicalLine{}, err
		}
		if ready {
			return done, nil
		}
	}

	if done, ready := u.flush(); ready {
		return done, nil
	}
	return logicalLine{}, io.EOF
}

// deferError returns the completed pending line, if any, and keeps err for
// the next call. Without a pending line err is returned at once.
func (u *Unfolder) deferError(err error) (logicalLine, error) {
	if done, ready := u.flush(); ready {
		u.err = err
		return done, nil
	}
	return logicalLine{}, err
}

// pushBack makes l the next line returned by Next.
func (u *Unfolder) pushBack(l logicalLine) {
	u.back = &l
}

// Line returns the number of physical lines consumed so far.
func (u *Unfolder) Line() int {
	return u.physNo
}

func (u *Unfolder) appendPending(s string) error {
	if s == "" {
		return nil
	}
	if u.pending.Len() == 0 {
		u.start = u.physNo
	}
	if u.pending.Len()+len(s) > u.max {
		return newError(InvalidFile, u.start, config.ErrLineTooLong)
	}
	u.pending.WriteString(s)
	return nil
}

func (u *Unfolder) flush() (logicalLine, bool) {
	if u.pending.Len() == 0 {
		return logicalLine{}, false
	}
	l := logicalLine{text: u.pending.String(), line: u.start}
	u.pending.Reset()
	return l, true
}
