package crm

import "strings"

// Snapshot is the customer and issuer data frozen onto a document when it is
// created. Later edits of the Customer or EIT never reach an existing snapshot.
type Snapshot struct {
	CustomerID      *int64 `json:"customer_id"`
	EITID           *int64 `json:"eit_id"`
	CustomerName    string `json:"customer_name"`
	CustomerTaxID   string `json:"customer_tax_id"`
	CustomerAddress string `json:"customer_address"`
	CustomerEmail   string `json:"customer_email"`
	CustomerPhone   string `json:"customer_phone"`
	CustomerFax     string `json:"customer_fax"`
	CustomerBranch  string `json:"customer_branch"`
	Attn            string `json:"cus_respon_attn"`
	AttnDivision    string `json:"cus_respon_div"`
	AttnMobile      string `json:"cus_respon_mobile"`
	CC              string `json:"cus_respon_cc"`
	CCDivision      string `json:"cus_respon_cc_div"`
	CCMobile        string `json:"cus_respon_cc_mobile"`
	CCEmail         string `json:"cus_respon_cc_email"`
	EITName         string `json:"eit_name"`
	EITAddress      string `json:"eit_address"`
	EITMobile       string `json:"eit_mobile"`
	EITPhone        string `json:"eit_phone"`
	EITFax          string `json:"eit_fax"`
}

// SnapshotOverrides carries values the caller edited on the document itself.
// A nil field keeps the built value; a non-nil field wins, even when empty.
type SnapshotOverrides struct {
	CustomerTaxID   *string `json:"customer_tax_id,omitempty"`
	CustomerAddress *string `json:"customer_address,omitempty"`
	CustomerEmail   *string `json:"customer_email,omitempty"`
	CustomerPhone   *string `json:"customer_phone,omitempty"`
	CustomerFax     *string `json:"customer_fax,omitempty"`
	CustomerBranch  *string `json:"customer_branch,omitempty"`
	Attn            *string `json:"cus_respon_attn,omitempty"`
	AttnDivision    *string `json:"cus_respon_div,omitempty"`
	AttnMobile      *string `json:"cus_respon_mobile,omitempty"`
	CC              *string `json:"cus_respon_cc,omitempty"`
	CCDivision      *string `json:"cus_respon_cc_div,omitempty"`
	CCMobile        *string `json:"cus_respon_cc_mobile,omitempty"`
	CCEmail         *string `json:"cus_respon_cc_email,omitempty"`
	EITAddress      *string `json:"eit_address,omitempty"`
	EITMobile       *string `json:"eit_mobile,omitempty"`
	EITPhone        *string `json:"eit_phone,omitempty"`
	EITFax          *string `json:"eit_fax,omitempty"`
}

// BuildSnapshot copies customer and issuer fields. Either argument may be nil.
func BuildSnapshot(c *Customer, e *EIT) Snapshot {
	var s Snapshot
	if c != nil {
		id := c.ID
		s.CustomerID = &id
		s.CustomerName = c.CompanyName
		s.CustomerTaxID = c.TaxID
		s.CustomerAddress = c.Address
		s.CustomerEmail = c.Email
		s.CustomerPhone = c.Phone
		s.CustomerFax = c.Fax
		s.CustomerBranch = c.Branch
		s.Attn = c.Attn
		s.AttnDivision = c.AttnDivision
		s.AttnMobile = c.AttnMobile
		s.CC = c.CC
		s.CCDivision = c.CCDivision
		s.CCMobile = c.CCMobile
		s.CCEmail = c.CCEmail
	}
	if e != nil {
		id := e.ID
		s.EITID = &id
		s.EITName = e.OrganizationName
		s.EITAddress = e.Address
		s.EITMobile = e.Mobile
		s.EITPhone = e.Telephone
		s.EITFax = e.Fax
	}
	return s
}

// Apply returns s with every non-nil override applied.
func (s Snapshot) Apply(o SnapshotOverrides) Snapshot {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&s.CustomerTaxID, o.CustomerTaxID)
	set(&s.CustomerAddress, o.CustomerAddress)
	set(&s.CustomerEmail, o.CustomerEmail)
	set(&s.CustomerPhone, o.CustomerPhone)
	set(&s.CustomerFax, o.CustomerFax)
	set(&s.CustomerBranch, o.CustomerBranch)
	set(&s.Attn, o.Attn)
	set(&s.AttnDivision, o.AttnDivision)
	set(&s.AttnMobile, o.AttnMobile)
	set(&s.CC, o.CC)
	set(&s.CCDivision, o.CCDivision)
	set(&s.CCMobile, o.CCMobile)
	set(&s.CCEmail, o.CCEmail)
	set(&s.EITAddress, o.EITAddress)
	set(&s.EITMobile, o.EITMobile)
	set(&s.EITPhone, o.EITPhone)
	set(&s.EITFax, o.EITFax)
	return s
}

// PartyJSON is the customer block stored as JSON on invoices, receipts and
// purchase orders.
func (s Snapshot) PartyJSON() map[string]any {
	party := map[string]any{
		"name":     s.CustomerName,
		"tax_id":   s.CustomerTaxID,
		"address":  s.CustomerAddress,
		"email":    s.CustomerEmail,
		"phone":    s.CustomerPhone,
		"fax":      s.CustomerFax,
		"branch":   s.CustomerBranch,
		"attn":     s.Attn,
		"division": s.AttnDivision,
		"mobile":   s.AttnMobile,
	}
	if s.CustomerID != nil {
		party["id"] = *s.CustomerID
	}
	return party
}
