package crm

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CustomerInput carries writable customer fields. Nil fields are left
// untouched on update.
type CustomerInput struct {
	CompanyName  *string `json:"company_name,omitempty" validate:"omitempty,max=255"`
	TaxID        *string `json:"tax_id,omitempty" validate:"omitempty,max=50"`
	Address      *string `json:"address,omitempty"`
	Email        *string `json:"email,omitempty" validate:"omitempty,max=255"`
	CompanyEmail *string `json:"companyEmail,omitempty" validate:"omitempty,max=255"`
	Phone        *string `json:"phone,omitempty" validate:"omitempty,max=100"`
	CompanyPhone *string `json:"companyPhone,omitempty" validate:"omitempty,max=100"`
	Fax          *string `json:"cus_fax,omitempty" validate:"omitempty,max=100"`
	Branch       *string `json:"branch,omitempty" validate:"omitempty,max=255"`
	Industry     *string `json:"industry,omitempty" validate:"omitempty,max=255"`
	Attn         *string `json:"attn,omitempty" validate:"omitempty,max=255"`
	AttnEmail    *string `json:"attn_email,omitempty" validate:"omitempty,max=255"`
	AttnEmailAlt *string `json:"attnEmail,omitempty" validate:"omitempty,max=255"`
	AttnMobile   *string `json:"attn_mobile,omitempty" validate:"omitempty,max=100"`
	AttnDivision *string `json:"attn_division,omitempty" validate:"omitempty,max=255"`
	AttnPosition *string `json:"attn_position,omitempty" validate:"omitempty,max=255"`
	CC           *string `json:"cc,omitempty"`
	CCDivision   *string `json:"cc_division,omitempty"`
	CCEmail      *string `json:"cc_email,omitempty"`
	CCMobile     *string `json:"cc_mobile,omitempty"`
	CCPosition   *string `json:"cc_position,omitempty"`

	ExtraContacts []ExtraContact `json:"extra_contacts,omitempty" validate:"omitempty,dive"`
}

// apply writes the input onto c and normalises the cc lists.
func (in CustomerInput) apply(c *Customer) error {
	assign(&c.CompanyName, in.CompanyName)
	assign(&c.TaxID, in.TaxID)
	assign(&c.Address, in.Address)
	assign(&c.Email, first(in.Email, in.CompanyEmail))
	assign(&c.Phone, first(in.Phone, in.CompanyPhone))
	assign(&c.Fax, in.Fax)
	assign(&c.Branch, in.Branch)
	assign(&c.Industry, in.Industry)
	assign(&c.Attn, in.Attn)
	assign(&c.AttnEmail, first(in.AttnEmail, in.AttnEmailAlt))
	assign(&c.AttnMobile, in.AttnMobile)
	assign(&c.AttnDivision, in.AttnDivision)
	assign(&c.AttnPosition, in.AttnPosition)

	if err := CheckExtraContacts(in.ExtraContacts); err != nil {
		return err
	}
	explicit := strings.TrimSpace(deref(in.CC)+deref(in.CCDivision)+deref(in.CCEmail)+deref(in.CCMobile)+deref(in.CCPosition)) != ""
	if !explicit && in.ExtraContacts != nil {
		c.SetContactLists(BuildContactLists(in.ExtraContacts))
	} else {
		assign(&c.CC, in.CC)
		assign(&c.CCDivision, in.CCDivision)
		assign(&c.CCEmail, in.CCEmail)
		assign(&c.CCMobile, in.CCMobile)
		assign(&c.CCPosition, in.CCPosition)
	}
	lists, err := ValidateContactLists(c.ContactLists())
	if err != nil {
		return err
	}
	c.SetContactLists(lists)
	return nil
}

// CreateCustomerRequest is the body of POST /customers.
type CreateCustomerRequest struct {
	CustomerInput
	CompanyName string `json:"company_name" validate:"required,max=255"`
}

// UpdateCustomerRequest is the body of PUT/PATCH /customers/{id}.
type UpdateCustomerRequest struct {
	CustomerInput
}

// CustomerFilter narrows ListCustomers.
type CustomerFilter struct {
	Search string
	Limit  int
	Offset int
}

// EITRequest creates or updates an issuing organization.
type EITRequest struct {
	OrganizationName string  `json:"organization_name" validate:"required,max=255"`
	OrganizationID   *string `json:"organization_id,omitempty" validate:"omitempty,max=100"`
	TaxNumber        string  `json:"tax_number" validate:"max=50"`
	Address          string  `json:"address"`
	Mobile           string  `json:"eit_mobile" validate:"max=100"`
	Telephone        string  `json:"eit_telephone" validate:"max=100"`
	Fax              string  `json:"eit_fax" validate:"max=100"`
	HeaderImage      string  `json:"header_image"`
}

// DealRequest is used for both create and update. On update nil fields keep
// the stored value.
type DealRequest struct {
	Title         *string          `json:"title,omitempty" validate:"omitempty,max=255"`
	CustomerID    *int64           `json:"customer_id,omitempty" validate:"omitempty,gt=0"`
	CustomerName  *string          `json:"customer_name,omitempty" validate:"omitempty,max=255"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`
	Currency      *string          `json:"currency,omitempty" validate:"omitempty,max=10"`
	Priority      *string          `json:"priority,omitempty" validate:"omitempty,max=20"`
	Contact       *string          `json:"contact,omitempty"`
	Email         *string          `json:"email,omitempty"`
	Phone         *string          `json:"phone,omitempty"`
	Address       *string          `json:"address,omitempty"`
	TaxID         *string          `json:"tax_id,omitempty"`
	CompanyEmail  *string          `json:"company_email,omitempty"`
	CompanyEmail2 *string          `json:"companyEmail,omitempty"`
	CompanyPhone  *string          `json:"company_phone,omitempty"`
	CompanyPhone2 *string          `json:"companyPhone,omitempty"`
	Branch        *string          `json:"branch,omitempty"`
	ExtraContacts []ExtraContact   `json:"extra_contacts,omitempty" validate:"omitempty,dive"`
	Items         json.RawMessage  `json:"items,omitempty"`
	Notes         *string          `json:"notes,omitempty"`
	Stage         *string          `json:"stage,omitempty" validate:"omitempty,max=100"`
	ExpectedClose *string          `json:"expected_close,omitempty" validate:"omitempty,datetime=2006-01-02"`
	PONumber      *string          `json:"po_number,omitempty" validate:"omitempty,max=100"`
	Salesperson   *string          `json:"salesperson,omitempty" validate:"omitempty,max=255"`
}

func (req DealRequest) contactUpdate() DealContactUpdate {
	return DealContactUpdate{
		Contact:       deref(req.Contact),
		Email:         deref(req.Email),
		Phone:         deref(req.Phone),
		Address:       deref(req.Address),
		TaxID:         deref(req.TaxID),
		CompanyEmail:  deref(first(req.CompanyEmail, req.CompanyEmail2)),
		CompanyPhone:  deref(first(req.CompanyPhone, req.CompanyPhone2)),
		ExtraContacts: req.ExtraContacts,
	}
}

// apply copies the request onto d. Stage is trimmed.
func (req DealRequest) apply(d *Deal) {
	assign(&d.Title, req.Title)
	if req.Amount != nil {
		d.Amount = *req.Amount
	}
	assign(&d.Currency, req.Currency)
	assign(&d.Priority, req.Priority)
	assign(&d.Contact, req.Contact)
	assign(&d.Email, req.Email)
	assign(&d.Phone, req.Phone)
	assign(&d.Address, req.Address)
	assign(&d.TaxID, req.TaxID)
	if req.ExtraContacts != nil {
		d.ExtraContacts = req.ExtraContacts
	}
	if len(req.Items) > 0 {
		d.Items = req.Items
	}
	assign(&d.Notes, req.Notes)
	assign(&d.Stage, req.Stage)
	if req.ExpectedClose != nil {
		if t, err := time.Parse(time.DateOnly, *req.ExpectedClose); err == nil {
			d.ExpectedClose = &t
		} else {
			d.ExpectedClose = nil
		}
	}
	assign(&d.PONumber, req.PONumber)
	assign(&d.Salesperson, req.Salesperson)
}

// DealFilter narrows ListDeals.
type DealFilter struct {
	CustomerID *int64
	Stage      string
	Limit      int
	Offset     int
}

// ActivityRequest creates an activity schedule.
type ActivityRequest struct {
	DealID       *int64     `json:"deal_id,omitempty" validate:"omitempty,gt=0"`
	Customer     string     `json:"customer" validate:"max=255"`
	ActivityName string     `json:"activity_name" validate:"required,max=255"`
	Salesperson  string     `json:"salesperson" validate:"max=255"`
	StartAt      *time.Time `json:"start_at,omitempty"`
	DueAt        time.Time  `json:"due_at" validate:"required"`
}

// ActivityFilter narrows ListActivities.
type ActivityFilter struct {
	DealID   *int64
	OpenOnly bool
}

func assign(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

func first(vals ...*string) *string {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
