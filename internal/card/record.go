// Package card reads, validates and writes vCard 4.0 contact records.
//
// Reading is a strict pipeline: physical lines are unfolded into logical
// lines, each logical line is decoded into a Property (or recognized as a
// BEGIN/END control marker), reserved properties are specialized into typed
// Record fields, and the Record is accepted only when BEGIN, END, VERSION and
// FN were all seen. One malformed line invalidates the whole record.
//
// A Record is a plain tree of values owned by its caller; no state is shared
// between parses, so independent records may be processed concurrently.
package card

import (
	"fmt"
	"slices"
	"strings"

	"github.com/tartampluch/go-vcf/internal/config"
)

// Parameter is one name=value pair attached to a property.
type Parameter struct {
	Name  string
	Value string
}

// Property is one decoded content line.
type Property struct {
	// Group is the optional "group." prefix, empty when absent.
	Group string
	// Name is compared case-insensitively.
	Name       string
	Parameters []Parameter
	// Values holds the semicolon-separated tokens, trimmed. Empty tokens are kept.
	Values []string
}

// NewProperty builds a property with non-nil parameter and value lists.
func NewProperty(name string, values ...string) *Property {
	if values == nil {
		values = []string{}
	}
	return &Property{
		Name:       name,
		Parameters: []Parameter{},
		Values:     values,
	}
}

// Is reports whether the property has the given name, ignoring case.
func (p *Property) Is(name string) bool {
	return strings.EqualFold(p.Name, name)
}

// Value returns the first value, or "" when the list is empty.
func (p *Property) Value() string {
	if len(p.Values) == 0 {
		return ""
	}
	return p.Values[0]
}

// Param returns the value of the first parameter called name, ignoring case.
func (p *Property) Param(name string) (string, bool) {
	for _, prm := range p.Parameters {
		if strings.EqualFold(prm.Name, name) {
			return prm.Value, true
		}
	}
	return "", false
}

// Clone returns a deep copy.
func (p *Property) Clone() *Property {
	if p == nil {
		return nil
	}
	return &Property{
		Group:      p.Group,
		Name:       p.Name,
		Parameters: slices.Clone(p.Parameters),
		Values:     slices.Clone(p.Values),
	}
}

// Shape identifies which variant of the DateTime union is populated.
type Shape int

const (
	// ShapeDateTime is a date and/or time made of digits, e.g. 19850615 or 19850615T103000.
	ShapeDateTime Shape = iota
	// ShapePartialDate is a truncated date written with a leading "--", e.g. --0615.
	ShapePartialDate
	// ShapeText is free-form text, e.g. "circa 1985".
	ShapeText
)

// String returns a lower-case label for the shape.
func (s Shape) String() string {
	switch s {
	case ShapeDateTime:
		return "date-time"
	case ShapePartialDate:
		return "partial-date"
	case ShapeText:
		return "text"
	}
	return fmt.Sprintf("Shape(%d)", int(s))
}

// DateTime is the value of a BDAY or ANNIVERSARY property.
// When IsText is set only Text is meaningful; otherwise Date and Time hold the raw parts.
type DateTime struct {
	Date   string
	Time   string
	Text   string
	IsText bool
	// UTC is reserved for zone-qualified values. It is never set by the parser.
	UTC bool
}

// ParseDateTime classifies a raw BDAY/ANNIVERSARY value.
// A "T" splits date and time; a leading "--" is a partial date; a value not
// starting with a digit is text; anything else is a bare date.
func ParseDateTime(raw string) *DateTime {
	if before, after, found := strings.Cut(raw, config.DateTimeSeparator); found {
		return &DateTime{Date: before, Time: after}
	}
	if strings.HasPrefix(raw, config.PartialDatePrefix) {
		return &DateTime{Date: raw}
	}
	if raw == "" || raw[0] < '0' || raw[0] > '9' {
		return &DateTime{Text: raw, IsText: true}
	}
	return &DateTime{Date: raw}
}

// Shape reports which union variant the value holds.
func (dt *DateTime) Shape() Shape {
	switch {
	case dt.IsText:
		return ShapeText
	case strings.HasPrefix(dt.Date, config.PartialDatePrefix):
		return ShapePartialDate
	default:
		return ShapeDateTime
	}
}

// String renders the value the way it is written in a card.
func (dt *DateTime) String() string {
	if dt.IsText {
		return dt.Text
	}
	if dt.Time == "" {
		return dt.Date
	}
	return dt.Date + config.DateTimeSeparator + dt.Time
}

// Clone returns a copy.
func (dt *DateTime) Clone() *DateTime {
	if dt == nil {
		return nil
	}
	c := *dt
	return &c
}

// Record is one parsed contact.
type Record struct {
	// DisplayName is the FN property. A parsed record always has one.
	DisplayName *Property
	Birthday    *DateTime
	Anniversary *DateTime
	// Properties holds every other property in arrival order.
	Properties []*Property
}

// NewRecord creates a record holding only a display name.
func NewRecord(displayName string) *Record {
	return &Record{
		DisplayName: NewProperty(config.VCardFN, displayName),
		Properties:  []*Property{},
	}
}

// Name returns the first display-name value, or "" when absent.
func (r *Record) Name() string {
	if r == nil || r.DisplayName == nil {
		return ""
	}
	return r.DisplayName.Value()
}

// SetDisplayName replaces the first FN value, creating the FN property when missing.
func (r *Record) SetDisplayName(name string) error {
	if r == nil {
		return newError(InvalidRecord, 0, config.ErrNilRecord)
	}
	if name == "" {
		return newError(InvalidProperty, 0, config.ErrEmptyDisplayName)
	}
	switch {
	case r.DisplayName == nil:
		r.DisplayName = NewProperty(config.VCardFN, name)
	case len(r.DisplayName.Values) == 0:
		r.DisplayName.Values = append(r.DisplayName.Values, name)
	default:
		r.DisplayName.Values[0] = name
	}
	return nil
}

// Get returns the first generic property called name, ignoring case.
func (r *Record) Get(name string) *Property {
	for _, p := range r.Properties {
		if p.Is(name) {
			return p
		}
	}
	return nil
}

// All returns every generic property called name, in order.
func (r *Record) All(name string) []*Property {
	var out []*Property
	for _, p := range r.Properties {
		if p.Is(name) {
			out = append(out, p)
		}
	}
	return out
}

// Add appends a generic property.
func (r *Record) Add(p *Property) {
	r.Properties = append(r.Properties, p)
}

// Clone returns a deep copy sharing nothing with r.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := &Record{
		DisplayName: r.DisplayName.Clone(),
		Birthday:    r.Birthday.Clone(),
		Anniversary: r.Anniversary.Clone(),
		Properties:  make([]*Property, 0, len(r.Properties)),
	}
	for _, p := range r.Properties {
		c.Properties = append(c.Properties, p.Clone())
	}
	return c
}

// Release drops everything the record owns. It is safe on nil and on an
// already released record.
func (r *Record) Release() {
	if r == nil {
		return
	}
	r.DisplayName = nil
	r.Birthday = nil
	r.Anniversary = nil
	clear(r.Properties)
	r.Properties = nil
}

// Describe renders a human-readable dump of the record.
func (r *Record) Describe() string {
	if r == nil {
		return config.ErrNilRecord
	}
	var b strings.Builder

	b.WriteString("Full Name:\n")
	if r.DisplayName != nil {
		describeProperty(&b, r.DisplayName)
	} else {
		b.WriteString("NULL\n")
	}

	b.WriteString("\n---Optional Properties---\n")
	for _, p := range r.Properties {
		describeProperty(&b, p)
	}

	describeDate(&b, "Birthday", r.Birthday)
	describeDate(&b, "Anniversary", r.Anniversary)
	b.WriteString("---End of Card---\n")
	return b.String()
}

func describeProperty(b *strings.Builder, p *Property) {
	b.WriteString("Name: ")
	if p.Group != "" {
		b.WriteString(p.Group + ".")
	}
	b.WriteString(p.Name + "\n")
	if len(p.Parameters) > 0 {
		b.WriteString("Parameters:\n")
		for _, prm := range p.Parameters {
			fmt.Fprintf(b, "     - %s = %s\n", prm.Name, prm.Value)
		}
	}
	b.WriteString("Values:\n")
	for _, v := range p.Values {
		fmt.Fprintf(b, "     - %s\n", v)
	}
}

func describeDate(b *strings.Builder, label string, dt *DateTime) {
	if dt == nil {
		fmt.Fprintf(b, "%s: NULL\n", label)
		return
	}
	fmt.Fprintf(b, "%s: %s (%s)\n", label, dt.String(), dt.Shape())
}
