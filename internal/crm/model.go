package crm

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Defaults applied to new deals.
const (
	DefaultDealTitle    = "Untitled Deal"
	DefaultDealCurrency = "฿"
	DefaultDealStage    = "New"
	DefaultDealPriority = "medium"
)

// Customer is the organization a deal or document is addressed to.
type Customer struct {
	ID           int64     `json:"id"`
	CompanyName  string    `json:"company_name"`
	TaxID        string    `json:"tax_id"`
	Address      string    `json:"address"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	Fax          string    `json:"cus_fax"`
	Branch       string    `json:"branch"`
	Industry     string    `json:"industry"`
	Attn         string    `json:"attn"`
	AttnEmail    string    `json:"attn_email"`
	AttnMobile   string    `json:"attn_mobile"`
	AttnDivision string    `json:"attn_division"`
	AttnPosition string    `json:"attn_position"`
	CC           string    `json:"cc"`
	CCDivision   string    `json:"cc_division"`
	CCEmail      string    `json:"cc_email"`
	CCMobile     string    `json:"cc_mobile"`
	CCPosition   string    `json:"cc_position"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ContactLists returns the cc* columns.
func (c Customer) ContactLists() ContactLists {
	return ContactLists{CC: c.CC, Division: c.CCDivision, Email: c.CCEmail, Mobile: c.CCMobile, Position: c.CCPosition}
}

// SetContactLists writes the cc* columns.
func (c *Customer) SetContactLists(l ContactLists) {
	c.CC, c.CCDivision, c.CCEmail, c.CCMobile, c.CCPosition = l.CC, l.Division, l.Email, l.Mobile, l.Position
}

// EIT is the issuing organization printed on document headers.
type EIT struct {
	ID               int64     `json:"id"`
	OrganizationName string    `json:"organization_name"`
	OrganizationID   *string   `json:"organization_id"`
	TaxNumber        string    `json:"tax_number"`
	Address          string    `json:"address"`
	Mobile           string    `json:"eit_mobile"`
	Telephone        string    `json:"eit_telephone"`
	Fax              string    `json:"eit_fax"`
	HeaderImage      string    `json:"header_image"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ExtraContact is an additional person recorded on a deal.
type ExtraContact struct {
	Name     string `json:"name" validate:"excludes=0x2C"`
	Division string `json:"division" validate:"excludes=0x2C"`
	Email    string `json:"email" validate:"excludes=0x2C"`
	Mobile   string `json:"mobile" validate:"excludes=0x2C"`
	Position string `json:"position" validate:"excludes=0x2C"`
}

// Deal is a sales pipeline entry.
type Deal struct {
	ID            int64           `json:"id"`
	Title         string          `json:"title"`
	CustomerID    *int64          `json:"customer_id"`
	CustomerName  string          `json:"customer_name,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Priority      string          `json:"priority"`
	Contact       string          `json:"contact"`
	Email         string          `json:"email"`
	Phone         string          `json:"phone"`
	Address       string          `json:"address"`
	TaxID         string          `json:"tax_id"`
	ExtraContacts []ExtraContact  `json:"extra_contacts"`
	Items         json.RawMessage `json:"items"`
	Notes         string          `json:"notes"`
	Stage         string          `json:"stage"`
	ExpectedClose *time.Time      `json:"expected_close"`
	PONumber      string          `json:"po_number"`
	Salesperson   string          `json:"salesperson"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// DealHistory records one stage transition.
type DealHistory struct {
	ID        int64     `json:"id"`
	DealID    int64     `json:"deal_id"`
	FromStage string    `json:"from_stage"`
	ToStage   string    `json:"to_stage"`
	ChangedAt time.Time `json:"changed_at"`
}

// ActivitySchedule is a follow-up task attached to a deal.
type ActivitySchedule struct {
	ID           int64      `json:"id"`
	DealID       *int64     `json:"deal_id"`
	Customer     string     `json:"customer"`
	ActivityName string     `json:"activity_name"`
	Salesperson  string     `json:"salesperson"`
	StartAt      *time.Time `json:"start_at"`
	DueAt        time.Time  `json:"due_at"`
	Completed    bool       `json:"completed"`
	ReminderSent bool       `json:"reminder_sent"`
	CreatedAt    time.Time  `json:"created_at"`
}
