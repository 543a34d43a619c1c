package card_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tartampluch/go-vcf/internal/card"
)

func validRecord() *card.Record {
	rec := card.NewRecord("John Doe")
	rec.Add(card.NewProperty("N", "Doe", "John", "", "", ""))
	rec.Add(card.NewProperty("EMAIL", "john@example.com"))
	rec.Birthday = card.ParseDateTime("19850615")
	return rec
}

func TestValidate_AcceptsParsedRecord(t *testing.T) {
	input := crlf(
		"BEGIN:VCARD", "VERSION:4.0", "FN:John Doe", "N:Doe;John;;;",
		"TEL;TYPE=home:123", "BDAY:19850615T103000", "ANNIVERSARY:circa 2010", "END:VCARD",
	)
	rec, err := card.Parse(strings.NewReader(input))
	require.NoError(t, err)

	assert.NoError(t, card.Validate(rec))
	assert.NoError(t, card.Validate(validRecord()))
}

func TestValidate_Violations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *card.Record)
		kind   card.Kind
	}{
		{
			name:   "missing display name",
			mutate: func(r *card.Record) { r.DisplayName = nil },
			kind:   card.InvalidRecord,
		},
		{
			name:   "display name without values",
			mutate: func(r *card.Record) { r.DisplayName.Values = nil },
			kind:   card.InvalidRecord,
		},
		{
			name:   "version stored as property",
			mutate: func(r *card.Record) { r.Add(card.NewProperty("version", "4.0")) },
			kind:   card.InvalidRecord,
		},
		{
			name:   "unknown property",
			mutate: func(r *card.Record) { r.Add(card.NewProperty("X-FOO", "bar")) },
			kind:   card.InvalidProperty,
		},
		{
			name:   "nil parameter list",
			mutate: func(r *card.Record) { r.Properties[1].Parameters = nil },
			kind:   card.InvalidProperty,
		},
		{
			name:   "nil value list",
			mutate: func(r *card.Record) { r.Properties[1].Values = nil },
			kind:   card.InvalidProperty,
		},
		{
			name:   "structured name with four values",
			mutate: func(r *card.Record) { r.Properties[0].Values = []string{"Doe", "John", "", ""} },
			kind:   card.InvalidProperty,
		},
		{
			name:   "two structured names",
			mutate: func(r *card.Record) { r.Add(card.NewProperty("n", "a", "b", "c", "d", "e")) },
			kind:   card.InvalidProperty,
		},
		{
			name:   "required value missing",
			mutate: func(r *card.Record) { r.Add(card.NewProperty("TEL")) },
			kind:   card.InvalidProperty,
		},
		{
			name:   "partial date with four digits",
			mutate: func(r *card.Record) { r.Birthday = card.ParseDateTime("--0615") },
			kind:   card.InvalidDateTime,
		},
		{
			name:   "short date",
			mutate: func(r *card.Record) { r.Birthday = card.ParseDateTime("1985") },
			kind:   card.InvalidDateTime,
		},
		{
			name:   "short time",
			mutate: func(r *card.Record) { r.Anniversary = card.ParseDateTime("20100704T10") },
			kind:   card.InvalidDateTime,
		},
		{
			name:   "text shape carrying a date",
			mutate: func(r *card.Record) { r.Birthday = &card.DateTime{IsText: true, Text: "x", Date: "19850615"} },
			kind:   card.InvalidDateTime,
		},
		{
			name:   "empty text",
			mutate: func(r *card.Record) { r.Birthday = &card.DateTime{IsText: true} },
			kind:   card.InvalidDateTime,
		},
		{
			name:   "birthday stored as generic property",
			mutate: func(r *card.Record) { r.Add(card.NewProperty("BDAY", "19850615")) },
			kind:   card.InvalidDateTime,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			tt.mutate(rec)

			err := card.Validate(rec)
			require.Error(t, err)
			assert.Equal(t, tt.kind, card.KindOf(err))
		})
	}
}

func TestValidate_AcceptsGeneralProperties(t *testing.T) {
	for _, name := range []string{"SOURCE", "KIND", "XML", "NICKNAME", "PHOTO"} {
		rec := validRecord()
		rec.Add(card.NewProperty(name, "value"))
		assert.NoError(t, card.Validate(rec), name)
	}
}

func TestValidate_StructuredNameFromParse(t *testing.T) {
	input := crlf("BEGIN:VCARD", "VERSION:4.0", "FN:x", "N:Doe;John", "END:VCARD")
	rec, err := card.Parse(strings.NewReader(input))
	require.NoError(t, err, "cardinality is a schema rule, not a grammar rule")

	assert.ErrorIs(t, card.Validate(rec), card.ErrInvalidProperty)
}

func TestValidate_FirstViolationWins(t *testing.T) {
	rec := validRecord()
	rec.DisplayName = nil
	rec.Add(card.NewProperty("X-UNKNOWN", "v"))
	rec.Birthday = &card.DateTime{Date: "1"}

	assert.Equal(t, card.InvalidRecord, card.KindOf(card.Validate(rec)))
}

func TestValidate_DoesNotMutate(t *testing.T) {
	rec := validRecord()
	before := rec.Clone()

	require.NoError(t, card.Validate(rec))
	assert.Equal(t, before, rec)
}

func TestValidate_NameCaseInsensitive(t *testing.T) {
	rec := validRecord()
	rec.Add(card.NewProperty("email", "other@example.com"))
	rec.Add(card.NewProperty("Tel", "123"))

	assert.NoError(t, card.Validate(rec))
}

func TestValidate_NilRecord(t *testing.T) {
	assert.ErrorIs(t, card.Validate(nil), card.ErrInvalidRecord)
}
