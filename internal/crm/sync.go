package crm

import "strings"

// DealContactUpdate is the contact part of a deal update that flows back to
// the linked customer.
type DealContactUpdate struct {
	Contact      string
	Email        string
	Phone        string
	Address      string
	TaxID        string
	CompanyEmail string
	CompanyPhone string
	// ExtraContacts is nil when the payload did not carry the list.
	ExtraContacts []ExtraContact
}

// ApplyDealToCustomer copies non-blank deal fields onto c. The cc lists are
// rebuilt from the payload contacts, or from a non-empty stored list when the
// payload has none. Blank values never clear a customer field. Contacts that
// would leave the cc lists unequal are rejected and c keeps its lists.
func ApplyDealToCustomer(c *Customer, u DealContactUpdate, stored []ExtraContact) error {
	setIfPresent(&c.Attn, u.Contact)
	setIfPresent(&c.AttnEmail, u.Email)
	setIfPresent(&c.AttnMobile, u.Phone)
	setIfPresent(&c.Address, u.Address)
	setIfPresent(&c.TaxID, u.TaxID)
	setIfPresent(&c.Email, u.CompanyEmail)
	setIfPresent(&c.Phone, u.CompanyPhone)

	extras := u.ExtraContacts
	if extras == nil {
		extras = stored
	}
	if u.ExtraContacts == nil && len(extras) == 0 {
		return nil
	}
	if err := CheckExtraContacts(extras); err != nil {
		return err
	}
	lists, err := ValidateContactLists(BuildContactLists(extras))
	if err != nil {
		return err
	}
	c.SetContactLists(lists)
	return nil
}

// ApplyCustomerToDeal refreshes the deal's contact fields from c. The customer
// value wins whenever it is non-blank. It reports whether d changed.
func ApplyCustomerToDeal(d *Deal, c Customer) bool {
	before := [5]string{d.Contact, d.Email, d.Phone, d.Address, d.TaxID}
	setIfPresent(&d.Contact, c.Attn)
	setIfPresent(&d.Email, c.AttnEmail)
	setIfPresent(&d.Phone, c.AttnMobile)
	setIfPresent(&d.Address, c.Address)
	setIfPresent(&d.TaxID, c.TaxID)
	return before != [5]string{d.Contact, d.Email, d.Phone, d.Address, d.TaxID}
}

func setIfPresent(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}
