package delivery

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/partsmatch/partsmatch-backend/pkg/db/models"
	"github.com/partsmatch/partsmatch-backend/pkg/enums"
)

// NotificationPayload is the seller-facing view of a part request, built from
// the joined request and buyer rows at processing time.
type NotificationPayload struct {
	EntryID      uuid.UUID           `json:"entry_id"`
	RequestID    uuid.UUID           `json:"request_id"`
	SellerID     uuid.UUID           `json:"seller_id"`
	PartName     string              `json:"part_name"`
	VehicleMake  string              `json:"vehicle_make"`
	VehicleModel string              `json:"vehicle_model"`
	VehicleYear  int                 `json:"vehicle_year"`
	Condition    enums.PartCondition `json:"condition"`
	Urgency      enums.Urgency       `json:"urgency"`
	Budget       *decimal.Decimal    `json:"budget,omitempty"`
	Parish       string              `json:"parish"`
	BuyerName    string              `json:"buyer_name"`
}

// BuildNotificationPayload assembles the payload for one queue entry.
func BuildNotificationPayload(entry models.DeliveryQueueEntry, request models.PartRequest, buyer models.User) NotificationPayload {
	return NotificationPayload{
		EntryID:      entry.ID,
		RequestID:    request.ID,
		SellerID:     entry.SellerID,
		PartName:     request.PartName,
		VehicleMake:  request.VehicleMake,
		VehicleModel: request.VehicleModel,
		VehicleYear:  request.VehicleYear,
		Condition:    request.Condition,
		Urgency:      request.Urgency,
		Budget:       request.Budget,
		Parish:       request.Parish,
		BuyerName:    buyer.FullName(),
	}
}

// Title renders the in-app notification title.
func (p NotificationPayload) Title() string {
	return fmt.Sprintf("New part request: %s", p.PartName)
}

// Message renders the in-app notification body.
func (p NotificationPayload) Message() string {
	msg := fmt.Sprintf("%s is looking for %s for a %d %s %s (%s condition, %s urgency) in %s.",
		p.BuyerName, p.PartName, p.VehicleYear, p.VehicleMake, p.VehicleModel,
		p.Condition, p.Urgency, p.Parish)
	if p.Budget != nil {
		msg += fmt.Sprintf(" Budget: J$%s.", p.Budget.StringFixed(2))
	}
	return msg
}
