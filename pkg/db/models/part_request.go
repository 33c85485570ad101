package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/partsmatch/partsmatch-backend/pkg/enums"
)

// PartRequest is a buyer's request for an auto part, the aggregate that gets
// fanned out to sellers through the delivery queue.
type PartRequest struct {
	ID           uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID      uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null"`
	PartName     string              `gorm:"column:part_name;type:text;not null"`
	Description  *string             `gorm:"column:description;type:text"`
	VehicleMake  string              `gorm:"column:vehicle_make;type:text;not null"`
	VehicleModel string              `gorm:"column:vehicle_model;type:text;not null"`
	VehicleYear  int                 `gorm:"column:vehicle_year;not null"`
	Condition    enums.PartCondition `gorm:"column:condition;type:part_condition;not null"`
	Urgency      enums.Urgency       `gorm:"column:urgency;type:request_urgency;not null"`
	Budget       *decimal.Decimal    `gorm:"column:budget;type:numeric(12,2)"`
	Parish       string              `gorm:"column:parish;type:text;not null"`
	Status       enums.RequestStatus `gorm:"column:status;type:request_status;not null;default:open"`
	CreatedAt    time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
