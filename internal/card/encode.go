package card

import (
	"io"
	"strings"
	"unicode/utf8"

	"github.com/tartampluch/go-vcf/internal/config"
)

// Encoder writes records in the text form read by Parse.
type Encoder struct {
	w io.Writer
	// FoldWidth folds lines longer than this many octets; 0 disables folding.
	// Positive values below config.MinFoldWidth are raised to it.
	FoldWidth int
}

// NewEncoder returns an encoder writing to w without folding.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes r as one BEGIN..END block. Write errors are WriteFailure.
func (e *Encoder) Encode(r *Record) error {
	if r == nil {
		return newError(InvalidRecord, 0, config.ErrNilRecord)
	}
	var b strings.Builder
	for _, line := range Lines(r) {
		e.writeLine(&b, line)
	}
	if _, err := io.WriteString(e.w, b.String()); err != nil {
		return wrapError(WriteFailure, config.ErrWriteRecord, err)
	}
	return nil
}

// Format returns the serialized record without folding.
func Format(r *Record) string {
	var b strings.Builder
	for _, line := range Lines(r) {
		b.WriteString(line)
		b.WriteString(config.LineTerminator)
	}
	return b.String()
}

// Lines returns the unterminated logical lines of r, in emission order:
// BEGIN, VERSION, FN (first value only), generic properties, BDAY,
// ANNIVERSARY, END.
func Lines(r *Record) []string {
	if r == nil {
		return nil
	}
	lines := make([]string, 0, len(r.Properties)+6)
	lines = append(lines,
		config.KeywordBegin+string(config.DelimColon)+config.KeywordVCard,
		config.KeywordVersion+string(config.DelimColon)+config.SupportedVersion,
	)

	if fn := r.DisplayName; fn != nil && len(fn.Values) > 0 {
		head := propertyHead(fn)
		lines = append(lines, head+string(config.DelimColon)+fn.Values[0])
	}

	for _, p := range r.Properties {
		lines = append(lines, formatProperty(p))
	}

	if r.Birthday != nil {
		lines = append(lines, config.VCardBDAY+string(config.DelimColon)+r.Birthday.String())
	}
	if r.Anniversary != nil {
		lines = append(lines, config.VCardAnniversary+string(config.DelimColon)+r.Anniversary.String())
	}

	lines = append(lines, config.KeywordEnd+string(config.DelimColon)+config.KeywordVCard)
	return lines
}

// formatProperty renders [group.]name[;param=value]*:value[;value]*.
func formatProperty(p *Property) string {
	return propertyHead(p) + string(config.DelimColon) + strings.Join(p.Values, string(config.DelimSemicolon))
}

func propertyHead(p *Property) string {
	var b strings.Builder
	if p.Group != "" {
		b.WriteString(p.Group)
		b.WriteByte(config.DelimGroup)
	}
	b.WriteString(p.Name)
	for _, prm := range p.Parameters {
		b.WriteByte(config.DelimSemicolon)
		b.WriteString(prm.Name)
		b.WriteByte(config.DelimParam)
		b.WriteString(prm.Value)
	}
	return b.String()
}

// writeLine emits line with its terminator, folding it when FoldWidth is set.
// Continuation lines start with a single space that the unfolder removes,
// and folds never split a UTF-8 sequence.
func (e *Encoder) writeLine(b *strings.Builder, line string) {
	width := e.FoldWidth
	if width > 0 && width < config.MinFoldWidth {
		// A continuation must carry its blank plus at least one whole rune.
		width = config.MinFoldWidth
	}
	if width <= 0 || len(line) <= width {
		b.WriteString(line)
		b.WriteString(config.LineTerminator)
		return
	}

	limit := width
	for line != "" {
		cut := min(limit, len(line))
		for cut < len(line) && cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		if cut == 0 {
			cut = min(limit, len(line))
		}
		b.WriteString(line[:cut])
		b.WriteString(config.LineTerminator)
		line = line[cut:]
		if line != "" {
			b.WriteByte(' ')
		}
		// The leading space counts against the width of continuation lines.
		limit = width - 1
	}
}
