package card

import (
	"github.com/tartampluch/go-vcf/internal/config"
)

// DisplayNamePolicy selects how repeated FN lines are handled.
type DisplayNamePolicy int

const (
	// DisplayNameLast lets every FN line overwrite the previous one.
	DisplayNameLast DisplayNamePolicy = iota
	// DisplayNameFirst keeps the first FN as the display name and stores
	// later FN lines as generic properties.
	DisplayNameFirst
	// DisplayNameReject fails the record on a second FN line.
	DisplayNameReject
)

// ParseDisplayNamePolicy maps a settings value onto a policy.
func ParseDisplayNamePolicy(s string) (DisplayNamePolicy, bool) {
	switch s {
	case config.DisplayNamePolicyLast, "":
		return DisplayNameLast, true
	case config.DisplayNamePolicyFirst:
		return DisplayNameFirst, true
	case config.DisplayNamePolicyReject:
		return DisplayNameReject, true
	}
	return DisplayNameLast, false
}

// recordState is the per-record bookkeeping of the builder.
type recordState struct {
	rec            *Record
	begun          bool
	ended          bool
	versionSeen    bool
	policy         DisplayNamePolicy
	displayNameSet bool
}

func newRecordState(policy DisplayNamePolicy) *recordState {
	return &recordState{
		rec:    &Record{Properties: []*Property{}},
		policy: policy,
	}
}

// specialize routes a decoded property to its Record field.
// VERSION is checked and dropped, FN becomes the display name, BDAY and
// ANNIVERSARY become DateTime fields, everything else is kept in order.
func (st *recordState) specialize(p *Property, line int) error {
	switch {
	case p.Is(config.KeywordVersion):
		if len(p.Values) != 1 || p.Values[0] != config.SupportedVersion {
			return newError(InvalidRecord, line, config.ErrVersionMismatch)
		}
		st.versionSeen = true

	case p.Is(config.VCardFN):
		if !st.displayNameSet {
			st.rec.DisplayName = p
			st.displayNameSet = true
			return nil
		}
		switch st.policy {
		case DisplayNameFirst:
			st.rec.Add(p)
		case DisplayNameReject:
			return newError(InvalidRecord, line, config.ErrDuplicateFN)
		default:
			st.rec.DisplayName = p
		}

	case p.Is(config.VCardBDAY):
		st.rec.Birthday = ParseDateTime(p.Value())

	case p.Is(config.VCardAnniversary):
		st.rec.Anniversary = ParseDateTime(p.Value())

	default:
		st.rec.Add(p)
	}
	return nil
}

// complete reports whether the record may be handed to the caller.
func (st *recordState) complete() bool {
	return st.begun && st.ended && st.versionSeen && st.rec.DisplayName != nil
}
