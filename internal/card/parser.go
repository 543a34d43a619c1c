package card

import (
	"errors"
	"io"
	"log/slog"

	"github.com/tartampluch/go-vcf/internal/config"
)

// Parser holds the options of a parse. The zero value is ready to use.
type Parser struct {
	// MaxLineLength bounds one unfolded logical line in bytes (0 = default).
	MaxLineLength int
	// Strict rejects non-blank content before BEGIN:VCARD instead of ignoring it.
	Strict bool
	// DisplayName decides how repeated FN lines are treated.
	DisplayName DisplayNamePolicy
}

// Parse builds exactly one record from r. Input that ends before a complete
// record is an InvalidRecord error.
func Parse(r io.Reader) (*Record, error) {
	var p Parser
	return p.Parse(NewLineReader(r))
}

// Parse builds exactly one record from src.
func (p *Parser) Parse(src LineReader) (*Record, error) {
	rec, err := p.NewDecoder(src).Decode()
	if errors.Is(err, io.EOF) {
		return nil, newError(InvalidRecord, 0, config.ErrIncomplete)
	}
	return rec, err
}

// Decoder reads consecutive records from one line stream.
type Decoder struct {
	opts     Parser
	unfolder *Unfolder
	// resync is set after a failed record: its remaining lines are skipped.
	resync bool
}

// NewDecoder creates a stream decoder with the parser's options.
func (p *Parser) NewDecoder(src LineReader) *Decoder {
	return &Decoder{
		opts:     *p,
		unfolder: NewUnfolder(src, p.MaxLineLength),
	}
}

// NewDecoder creates a stream decoder with default options.
func NewDecoder(r io.Reader) *Decoder {
	var p Parser
	return p.NewDecoder(NewLineReader(r))
}

// Decode returns the next record. It returns io.EOF when the stream holds
// no further BEGIN marker. Any error discards the record being built; when
// that record had not reached its END marker, the following call resumes
// after it.
func (d *Decoder) Decode() (*Record, error) {
	if d.resync {
		if err := d.skipRecord(); err != nil {
			return nil, err
		}
	}

	st := newRecordState(d.opts.DisplayName)
	rec, err := d.build(st)
	if err != nil && !errors.Is(err, io.EOF) {
		d.resync = st.begun && !st.ended
		return nil, err
	}
	return rec, err
}

func (d *Decoder) build(st *recordState) (*Record, error) {
	for !st.ended {
		l, err := d.unfolder.Next()
		if errors.Is(err, io.EOF) {
			if !st.begun {
				return nil, io.EOF
			}
			break
		}
		if err != nil {
			return nil, err
		}

		kind, prop, err := decodeLine(l, st.begun)
		if err != nil {
			if _, isEnd := controlLine(l.text, config.KeywordEnd); isEnd {
				st.ended = true
			}
			return nil, err
		}

		switch kind {
		case lineBegin:
			st.begun = true
		case lineEnd:
			st.ended = true
		case lineIgnored:
			if d.opts.Strict {
				return nil, newError(InvalidRecord, l.line, config.ErrContentBeforeBeg)
			}
			slog.Debug(config.MsgPreBeginLine,
				config.LogKeyComponent, config.CompCard,
				config.LogKeyLine, l.line)
		case lineProperty:
			if err := st.specialize(prop, l.line); err != nil {
				return nil, err
			}
		}
	}

	if !st.complete() {
		return nil, newError(InvalidRecord, d.unfolder.Line(), config.ErrIncomplete)
	}

	slog.Debug(config.MsgRecordDecoded,
		config.LogKeyComponent, config.CompCard,
		config.LogKeyName, st.rec.Name(),
		config.LogKeyProps, len(st.rec.Properties))
	return st.rec, nil
}

// skipRecord discards logical lines up to and including the next END marker.
// Lines that cannot even be unfolded are skipped as well.
func (d *Decoder) skipRecord() error {
	slog.Debug(config.MsgResync,
		config.LogKeyComponent, config.CompCard,
		config.LogKeyLine, d.unfolder.Line())
	d.resync = false

	for {
		l, err := d.unfolder.Next()
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		if err != nil {
			// Framing errors are skipped; a failing reader ends the stream.
			if errors.Unwrap(err) != nil {
				return err
			}
			continue
		}
		if _, ok := controlLine(l.text, config.KeywordEnd); ok {
			return nil
		}
		if _, ok := controlLine(l.text, config.KeywordBegin); ok {
			// The broken record never ended; hand this BEGIN back to build.
			d.unfolder.pushBack(l)
			return nil
		}
	}
}
