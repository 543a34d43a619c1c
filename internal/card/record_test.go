package card_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tartampluch/go-vcf/internal/card"
)

func TestRecord_SetDisplayName(t *testing.T) {
	t.Run("replaces first value", func(t *testing.T) {
		rec := card.NewRecord("Old")
		require.NoError(t, rec.SetDisplayName("New"))
		assert.Equal(t, "New", rec.Name())
	})

	t.Run("creates missing property", func(t *testing.T) {
		rec := &card.Record{}
		require.NoError(t, rec.SetDisplayName("Created"))
		require.NotNil(t, rec.DisplayName)
		assert.Equal(t, "FN", rec.DisplayName.Name)
		assert.Equal(t, "Created", rec.Name())
	})

	t.Run("rejects empty name", func(t *testing.T) {
		rec := card.NewRecord("Kept")
		assert.ErrorIs(t, rec.SetDisplayName(""), card.ErrInvalidProperty)
		assert.Equal(t, "Kept", rec.Name())
	})

	t.Run("nil record", func(t *testing.T) {
		var rec *card.Record
		assert.ErrorIs(t, rec.SetDisplayName("x"), card.ErrInvalidRecord)
	})
}

func TestRecord_CloneIsDeep(t *testing.T) {
	rec := validRecord()
	rec.Properties[1].Parameters = append(rec.Properties[1].Parameters, card.Parameter{Name: "TYPE", Value: "home"})

	c := rec.Clone()
	require.Equal(t, rec, c)

	c.DisplayName.Values[0] = "Changed"
	c.Properties[0].Values[0] = "Changed"
	c.Properties[1].Parameters[0].Value = "work"
	c.Birthday.Date = "20000101"

	assert.Equal(t, "John Doe", rec.Name())
	assert.Equal(t, "Doe", rec.Properties[0].Values[0])
	assert.Equal(t, "home", rec.Properties[1].Parameters[0].Value)
	assert.Equal(t, "19850615", rec.Birthday.Date)
}

func TestRecord_ReleaseIsIdempotent(t *testing.T) {
	rec := validRecord()
	rec.Release()
	assert.Nil(t, rec.DisplayName)
	assert.Nil(t, rec.Birthday)
	assert.Nil(t, rec.Properties)

	assert.NotPanics(t, rec.Release)

	var nilRec *card.Record
	assert.NotPanics(t, nilRec.Release)
}

func TestRecord_GetAndAll(t *testing.T) {
	rec := card.NewRecord("x")
	rec.Add(card.NewProperty("TEL", "1"))
	rec.Add(card.NewProperty("EMAIL", "a@b.c"))
	rec.Add(card.NewProperty("tel", "2"))

	assert.Equal(t, "1", rec.Get("Tel").Value())
	assert.Nil(t, rec.Get("URL"))
	assert.Len(t, rec.All("TEL"), 2)
}

func TestRecord_Describe(t *testing.T) {
	rec, err := card.Parse(strings.NewReader(crlf(
		"BEGIN:VCARD", "VERSION:4.0", "FN:John Doe", "home.TEL;TYPE=voice:123", "BDAY:--0615", "END:VCARD",
	)))
	require.NoError(t, err)

	out := rec.Describe()
	assert.Contains(t, out, "Full Name:\nName: FN\nValues:\n     - John Doe\n")
	assert.Contains(t, out, "Name: home.TEL\nParameters:\n     - TYPE = voice\n")
	assert.Contains(t, out, "Birthday: --0615 (partial-date)\n")
	assert.Contains(t, out, "Anniversary: NULL\n")
	assert.True(t, strings.HasSuffix(out, "---End of Card---\n"))
}

func TestProperty_Value(t *testing.T) {
	assert.Equal(t, "", card.NewProperty("NOTE").Value())
	assert.Equal(t, "a", card.NewProperty("NOTE", "a", "b").Value())
}

func TestShape_String(t *testing.T) {
	assert.Equal(t, "date-time", card.ShapeDateTime.String())
	assert.Equal(t, "partial-date", card.ShapePartialDate.String())
	assert.Equal(t, "text", card.ShapeText.String())
	assert.Equal(t, "Shape(9)", card.Shape(9).String())
}

func TestError_KindMatching(t *testing.T) {
	err := &card.Error{Kind: card.InvalidProperty, Line: 7, Message: "missing colon"}

	assert.ErrorIs(t, err, card.ErrInvalidProperty)
	assert.NotErrorIs(t, err, card.ErrInvalidRecord)
	assert.Equal(t, "INV_PROP: missing colon (line 7)", err.Error())

	wrapped := fmt.Errorf("loading contacts: %w", err)
	assert.Equal(t, card.InvalidProperty, card.KindOf(wrapped))
	assert.Equal(t, card.Other, card.KindOf(errors.New("plain")))
	assert.Equal(t, card.Other, card.KindOf(nil))
}

func TestKind_String(t *testing.T) {
	tests := map[card.Kind]string{
		card.Other:           "OTHER_ERROR",
		card.InvalidFile:     "INV_FILE",
		card.InvalidRecord:   "INV_CARD",
		card.InvalidProperty: "INV_PROP",
		card.InvalidDateTime: "INV_DT",
		card.WriteFailure:    "WRITE_ERROR",
	}
	for kind, want := range tests {
		assert.Equal(t, want, kind.String())
	}
}
