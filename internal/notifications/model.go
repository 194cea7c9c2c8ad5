package notifications

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Kind classifies a notification.
type Kind string

const (
	KindInfo                Kind = "info"
	KindCRMCreated          Kind = "crm_created"
	KindCRMMove             Kind = "crm_move"
	KindActivityReminder    Kind = "activity_schedule_reminder"
	KindBillingNoteReminder Kind = "billing_note_reminder"
	KindManufacturingFinish Kind = "manufacturing_finish"
	KindDeliveryUpdates     Kind = "delivery_updates"
	KindInventoryUpdates    Kind = "inventory_updates"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindInfo, KindCRMCreated, KindCRMMove, KindActivityReminder, KindBillingNoteReminder,
		KindManufacturingFinish, KindDeliveryUpdates, KindInventoryUpdates:
		return true
	}
	return false
}

// Notification is a message shown in the notification center.
type Notification struct {
	ID        int64     `json:"id"`
	Kind      Kind      `json:"type"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// ListFilter narrows List results.
type ListFilter struct {
	Kind       Kind
	UnreadOnly bool
	Limit      int
}

const reminderLayout = "2006-01-02 15:04"

func ActivityDueMessage(customer, activity string, due time.Time) string {
	return fmt.Sprintf(`To do: "%s": "%s" is due on "%s"`, customer, activity, due.Format(reminderLayout))
}

func ActivityMissedMessage(customer, activity string) string {
	return fmt.Sprintf(`Missed activity: "%s": "%s"`, customer, activity)
}

func BillingNoteDueMessage(customer string, due time.Time) string {
	return fmt.Sprintf(`Billing Note: "%s": billing note due date on "%s"`, customer, due.Format("2006-01-02"))
}

func ManufacturingFinishedMessage(productNo, jobOrderCode string) string {
	if productNo == "" {
		productNo = "N/A"
	}
	return fmt.Sprintf("Manufacturing finished: %s under %s is complete.", productNo, jobOrderCode)
}

func InventoryChangedMessage(name string, from, to decimal.Decimal) string {
	return fmt.Sprintf(`Inventory Updates: "%s" stock changes from "%s" to "%s"`, name, from.String(), to.String())
}

func DeliveredMessage(customer string) string {
	return fmt.Sprintf(`Delivery: Successful delivery to the "%s"`, customer)
}

func DealCreatedMessage(title string) string {
	return fmt.Sprintf(`CRM: Created "%s"`, title)
}

func DealMovedMessage(customer, from, to string) string {
	return fmt.Sprintf(`CRM: "%s" (%s -> %s)`, customer, from, to)
}
