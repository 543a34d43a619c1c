package card

import (
	"strings"

	"github.com/tartampluch/go-vcf/internal/config"
)

// lineKind tells the record builder what a logical line turned out to be.
type lineKind int

const (
	lineProperty lineKind = iota
	lineBegin
	lineEnd
	// lineIgnored is content seen before BEGIN in lenient mode.
	lineIgnored
)

// decodeLine interprets one logical line. begun reports whether BEGIN:VCARD
// was already seen in the current record. On failure no Property is returned.
func decodeLine(l logicalLine, begun bool) (lineKind, *Property, error) {
	if arg, ok := controlLine(l.text, config.KeywordBegin); ok {
		if !strings.EqualFold(arg, config.KeywordVCard) {
			return 0, nil, newError(InvalidRecord, l.line, config.ErrBadBegin)
		}
		return lineBegin, nil, nil
	}
	if arg, ok := controlLine(l.text, config.KeywordEnd); ok {
		if !strings.EqualFold(arg, config.KeywordVCard) {
			return 0, nil, newError(InvalidRecord, l.line, config.ErrBadEnd)
		}
		if !begun {
			return 0, nil, newError(InvalidRecord, l.line, config.ErrEndBeforeBegin)
		}
		return lineEnd, nil, nil
	}
	if !begun {
		return lineIgnored, nil, nil
	}

	p, err := decodeProperty(l)
	if err != nil {
		return 0, nil, err
	}
	return lineProperty, p, nil
}

// controlLine matches "KEYWORD:argument" with optional whitespace around
// both tokens, ignoring keyword case.
func controlLine(text, keyword string) (string, bool) {
	head, arg, found := strings.Cut(text, string(config.DelimColon))
	if !found || !strings.EqualFold(strings.TrimSpace(head), keyword) {
		return "", false
	}
	return strings.TrimSpace(arg), true
}

// decodeProperty splits "[group.]name[;param=value]*:value[;value]*".
func decodeProperty(l logicalLine) (*Property, error) {
	head, raw, found := strings.Cut(l.text, string(config.DelimColon))
	if !found {
		return nil, newError(InvalidProperty, l.line, config.ErrMissingColon)
	}
	if head == "" {
		return nil, newError(InvalidProperty, l.line, config.ErrEmptyName)
	}

	name := head
	params := []Parameter{}
	if i := strings.IndexByte(head, config.DelimSemicolon); i >= 0 {
		name = head[:i]
		var err error
		if params, err = decodeParameters(head[i+1:], l.line); err != nil {
			return nil, err
		}
	}

	group := ""
	if strings.Count(name, string(config.DelimGroup)) > 1 {
		return nil, newError(InvalidProperty, l.line, config.ErrBadName)
	}
	if g, n, found := strings.Cut(name, string(config.DelimGroup)); found {
		group, name = g, n
	}
	name = strings.TrimSpace(name)

	if name == "" {
		return nil, newError(InvalidProperty, l.line, config.ErrEmptyName)
	}
	if strings.ContainsRune(name, config.DelimParam) || strings.ContainsRune(group, config.DelimParam) {
		return nil, newError(InvalidProperty, l.line, config.ErrBadName)
	}

	return &Property{
		Group:      group,
		Name:       name,
		Parameters: params,
		Values:     splitValues(raw),
	}, nil
}

// decodeParameters parses the ";"-separated tail of the name segment.
// Every token must be exactly one name=value pair with both sides non-empty.
func decodeParameters(s string, line int) ([]Parameter, error) {
	tokens := strings.Split(s, string(config.DelimSemicolon))
	params := make([]Parameter, 0, len(tokens))
	for _, tok := range tokens {
		if strings.Count(tok, string(config.DelimParam)) != 1 {
			return nil, newError(InvalidProperty, line, config.ErrBadParameter)
		}
		key, val, _ := strings.Cut(tok, string(config.DelimParam))
		if key == "" || val == "" {
			return nil, newError(InvalidProperty, line, config.ErrBadParameter)
		}
		params = append(params, Parameter{Name: key, Value: val})
	}
	return params, nil
}

// splitValues tokenizes the value segment on ";". Tokens are trimmed and
// empty tokens are kept, so the result always has at least one element.
func splitValues(raw string) []string {
	values := strings.Split(raw, string(config.DelimSemicolon))
	for i, v := range values {
		values[i] = strings.TrimSpace(v)
	}
	return values
}
