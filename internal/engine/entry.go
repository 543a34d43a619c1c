package engine

import "time"

// Entry is one yearly occasion (birthday or anniversary) of one contact,
// ready for listing and sorting by the CLI.
type Entry struct {
	// UID is a stable hash of name, occasion and date.
	UID string

	// CardUID identifies the record the entry came from; it keys Card in the feed.
	CardUID string

	Name string

	// Occasion is config.OccasionBirthday or config.OccasionAnniversary.
	Occasion string

	// Date is the parsed BDAY/ANNIVERSARY value. Without a year it is
	// anchored on config.DefaultLeapYear.
	Date time.Time

	// YearKnown is false for truncated dates such as --0615.
	YearKnown bool

	// NextOccurrence is today or the next future anniversary of Date.
	NextOccurrence time.Time

	// YearsNext is the age (or number of years married) reached at
	// NextOccurrence. Only meaningful when YearKnown is true.
	YearsNext int

	// Card is the serialized source record.
	Card []byte
}

// Cards indexes the serialized records of entries by CardUID.
func Cards(entries []Entry) map[string][]byte {
	cards := make(map[string][]byte, len(entries))
	for _, e := range entries {
		cards[e.CardUID] = e.Card
	}
	return cards
}
