package crm

import (
	"fmt"
	"strings"

	"github.com/odyssey-erp/odyssey-crm/internal/platform/httpx"
)

// ContactLists holds the five comma separated cc columns of a customer. Entry i
// of every list describes the same person.
type ContactLists struct {
	CC       string
	Division string
	Email    string
	Mobile   string
	Position string
}

// BuildContactLists renders extras positionally. Contacts whose every field is
// blank are skipped; blank fields of other contacts keep an empty slot.
func BuildContactLists(extras []ExtraContact) ContactLists {
	var names, divs, emails, mobiles, positions []string
	for _, e := range extras {
		e = trimContact(e)
		if e == (ExtraContact{}) {
			continue
		}
		names = append(names, e.Name)
		divs = append(divs, e.Division)
		emails = append(emails, e.Email)
		mobiles = append(mobiles, e.Mobile)
		positions = append(positions, e.Position)
	}
	return ContactLists{
		CC:       strings.Join(names, ","),
		Division: strings.Join(divs, ","),
		Email:    strings.Join(emails, ","),
		Mobile:   strings.Join(mobiles, ","),
		Position: strings.Join(positions, ","),
	}
}

// CheckExtraContacts rejects contacts that would not survive the comma
// separated cc columns.
func CheckExtraContacts(extras []ExtraContact) error {
	for i, e := range extras {
		for _, v := range [...]string{e.Name, e.Division, e.Email, e.Mobile, e.Position} {
			if strings.Contains(v, ",") {
				return httpx.FieldError(fmt.Sprintf("extra_contacts[%d]", i), "must not contain commas")
			}
		}
	}
	return nil
}

// Contacts splits the lists back into people.
func (l ContactLists) Contacts() []ExtraContact {
	cols := [][]string{splitCSV(l.CC), splitCSV(l.Division), splitCSV(l.Email), splitCSV(l.Mobile), splitCSV(l.Position)}
	n := 0
	for _, c := range cols {
		if len(c) > n {
			n = len(c)
		}
	}
	at := func(col []string, i int) string {
		if i < len(col) {
			return col[i]
		}
		return ""
	}
	out := make([]ExtraContact, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, ExtraContact{
			Name:     at(cols[0], i),
			Division: at(cols[1], i),
			Email:    at(cols[2], i),
			Mobile:   at(cols[3], i),
			Position: at(cols[4], i),
		})
	}
	return out
}

// ValidateContactLists trims every entry and checks that all lists describe
// the same number of people. A list with no content at all is padded with
// empty slots; two populated lists of different length are rejected.
func ValidateContactLists(l ContactLists) (ContactLists, error) {
	ptrs := []*string{&l.CC, &l.Division, &l.Email, &l.Mobile, &l.Position}
	names := []string{"cc", "cc_division", "cc_email", "cc_mobile", "cc_position"}
	want := 0
	for i, p := range ptrs {
		parts := splitCSV(*p)
		if isBlank(parts) {
			*p = ""
			continue
		}
		*p = strings.Join(parts, ",")
		switch {
		case want == 0:
			want = len(parts)
		case len(parts) != want:
			return ContactLists{}, httpx.FieldError(names[i], "contact lists must have the same number of entries")
		}
	}
	if want > 1 {
		for _, p := range ptrs {
			if *p == "" {
				*p = strings.Repeat(",", want-1)
			}
		}
	}
	return l, nil
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func isBlank(parts []string) bool {
	for _, p := range parts {
		if p != "" {
			return false
		}
	}
	return true
}

func trimContact(e ExtraContact) ExtraContact {
	return ExtraContact{
		Name:     strings.TrimSpace(e.Name),
		Division: strings.TrimSpace(e.Division),
		Email:    strings.TrimSpace(e.Email),
		Mobile:   strings.TrimSpace(e.Mobile),
		Position: strings.TrimSpace(e.Position),
	}
}
