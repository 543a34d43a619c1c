package card

import (
	"slices"
	"strings"

	"github.com/tartampluch/go-vcf/internal/config"
)

// Validate checks a completed record against the vCard 4.0 schema.
// It never modifies the record and reports only the first violation.
func Validate(r *Record) error {
	if r == nil {
		return newError(InvalidRecord, 0, config.ErrNilRecord)
	}

	checks := []func(*Record) error{
		checkDisplayName,
		checkNoVersion,
		checkAllowedNames,
		checkLists,
		checkStructuredName,
		checkRequiredValues,
		checkDates,
		checkDatesNotGeneric,
	}
	for _, check := range checks {
		if err := check(r); err != nil {
			return err
		}
	}
	return nil
}

func checkDisplayName(r *Record) error {
	if r.DisplayName == nil || len(r.DisplayName.Values) < 1 {
		return newError(InvalidRecord, 0, config.ErrMissingFN)
	}
	return nil
}

func checkNoVersion(r *Record) error {
	for _, p := range r.Properties {
		if p.Is(config.KeywordVersion) {
			return newError(InvalidRecord, 0, config.ErrVersionProperty)
		}
	}
	return nil
}

func checkAllowedNames(r *Record) error {
	for _, p := range r.Properties {
		if p.Name == "" {
			return newError(InvalidProperty, 0, config.ErrEmptyName)
		}
		if !containsFold(config.AllowedProperties, p.Name) {
			return &Error{Kind: InvalidProperty, Message: config.ErrUnknownProperty + ": " + p.Name}
		}
	}
	return nil
}

func checkLists(r *Record) error {
	for _, p := range r.Properties {
		if p.Parameters == nil || p.Values == nil {
			return newError(InvalidProperty, 0, config.ErrNilLists)
		}
	}
	return nil
}

func checkStructuredName(r *Record) error {
	count := 0
	for _, p := range r.Properties {
		if !p.Is(config.VCardN) {
			continue
		}
		count++
		if len(p.Values) != config.StructuredNameFields {
			return newError(InvalidProperty, 0, config.ErrNCardinality)
		}
	}
	if count > 1 {
		return newError(InvalidProperty, 0, config.ErrDuplicateN)
	}
	return nil
}

func checkRequiredValues(r *Record) error {
	for _, p := range r.Properties {
		if len(p.Values) == 0 && containsFold(config.ValueRequiredProperties, p.Name) {
			return newError(InvalidProperty, 0, config.ErrValueRequired)
		}
	}
	return nil
}

func checkDates(r *Record) error {
	for _, dt := range []*DateTime{r.Birthday, r.Anniversary} {
		if dt != nil && !dt.wellFormed() {
			return newError(InvalidDateTime, 0, config.ErrDateTimeShape)
		}
	}
	return nil
}

func checkDatesNotGeneric(r *Record) error {
	for _, p := range r.Properties {
		if p.Is(config.VCardBDAY) || p.Is(config.VCardAnniversary) {
			return newError(InvalidDateTime, 0, config.ErrDateAsProperty)
		}
	}
	return nil
}

// wellFormed enforces the union invariant: text values carry only text,
// other values carry an 8-digit-wide date and a 6-wide time, each optional.
func (dt *DateTime) wellFormed() bool {
	if dt.IsText {
		return dt.Text != "" && dt.Date == "" && dt.Time == "" && !dt.UTC
	}
	dateOK := len(dt.Date) == 0 || len(dt.Date) == config.DateLength
	timeOK := len(dt.Time) == 0 || len(dt.Time) == config.TimeLength
	return dateOK && timeOK && dt.Text == ""
}

func containsFold(set []string, name string) bool {
	return slices.ContainsFunc(set, func(s string) bool {
		return strings.EqualFold(s, name)
	})
}
