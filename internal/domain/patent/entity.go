// Package patent holds the grant record, its calendar-date type and the
// persistence contract every store implements.
package patent

// Patent is one granted patent as normalised from the grant API.  It is a
// value object: constructed once by the grant mapping step (or by a store
// load) and never mutated.
type Patent struct {
	PatentNumber            string  `json:"patent_number"`
	PatentApplicationNumber string  `json:"patent_application_number"`
	AssigneeEntityName      *string `json:"assignee_entity_name"`
	FilingDate              Date    `json:"filing_date"`
	GrantDate               Date    `json:"grant_date"`
	InventionTitle          string  `json:"invention_title"`
}

// Equal reports whether p and other agree on all six fields.  The assignee
// is compared by value; an absent assignee differs from an empty one.
func (p Patent) Equal(other Patent) bool {
	return p.PatentNumber == other.PatentNumber &&
		p.PatentApplicationNumber == other.PatentApplicationNumber &&
		equalOptional(p.AssigneeEntityName, other.AssigneeEntityName) &&
		p.FilingDate == other.FilingDate &&
		p.GrantDate == other.GrantDate &&
		p.InventionTitle == other.InventionTitle
}

// Assignee returns the assignee name and whether one is present.
func (p Patent) Assignee() (string, bool) {
	if p.AssigneeEntityName == nil {
		return "", false
	}
	return *p.AssigneeEntityName, true
}

func equalOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// StringPtr returns a pointer to a copy of s.
func StringPtr(s string) *string { return &s }

// FilterByGrantDate returns the patents whose GrantDate lies in [start, end],
// preserving input order.  The result is never nil.
func FilterByGrantDate(patents []Patent, start, end Date) []Patent {
	out := make([]Patent, 0)
	for _, p := range patents {
		if p.GrantDate.Between(start, end) {
			out = append(out, p)
		}
	}
	return out
}
