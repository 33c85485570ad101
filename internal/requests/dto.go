package requests

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/partsmatch/partsmatch-backend/pkg/db/models"
	"github.com/partsmatch/partsmatch-backend/pkg/enums"
)

// SubmitRequestDTO is the buyer-facing submission body.
type SubmitRequestDTO struct {
	PartName     string  `json:"part_name" validate:"required,min=2,max=200"`
	Description  *string `json:"description" validate:"omitempty,max=2000"`
	VehicleMake  string  `json:"vehicle_make" validate:"required,max=100"`
	VehicleModel string  `json:"vehicle_model" validate:"required,max=100"`
	VehicleYear  int     `json:"vehicle_year" validate:"required,gte=1950,lte=2030"`
	Condition    string  `json:"condition" validate:"required,oneof=new used refurbished any"`
	Urgency      string  `json:"urgency" validate:"required,oneof=low medium high"`
	Budget       *string `json:"budget" validate:"omitempty"`
	Parish       string  `json:"parish" validate:"required,max=100"`
}

// ToModel converts the DTO into a PartRequest owned by the buyer.
func (dto SubmitRequestDTO) ToModel(buyerID uuid.UUID) (*models.PartRequest, error) {
	condition, err := enums.ParsePartCondition(dto.Condition)
	if err != nil {
		return nil, err
	}
	urgency, err := enums.ParseUrgency(dto.Urgency)
	if err != nil {
		return nil, err
	}

	var budget *decimal.Decimal
	if dto.Budget != nil && *dto.Budget != "" {
		parsed, err := decimal.NewFromString(*dto.Budget)
		if err != nil {
			return nil, err
		}
		budget = &parsed
	}

	return &models.PartRequest{
		ID:           uuid.New(),
		BuyerID:      buyerID,
		PartName:     dto.PartName,
		Description:  dto.Description,
		VehicleMake:  dto.VehicleMake,
		VehicleModel: dto.VehicleModel,
		VehicleYear:  dto.VehicleYear,
		Condition:    condition,
		Urgency:      urgency,
		Budget:       budget,
		Parish:       dto.Parish,
		Status:       enums.RequestStatusOpen,
	}, nil
}

// SubmitResult reports the outcome of a submission.
type SubmitResult struct {
	RequestID             uuid.UUID `json:"request_id"`
	ScheduledSellersCount int       `json:"scheduled_sellers_count"`
}

// VisibleRequest is one row of the seller feed: a processed queue entry whose
// visibility time has passed, joined with its request.
type VisibleRequest struct {
	RequestID    uuid.UUID           `json:"request_id"`
	PartName     string              `json:"part_name"`
	VehicleMake  string              `json:"vehicle_make"`
	VehicleModel string              `json:"vehicle_model"`
	VehicleYear  int                 `json:"vehicle_year"`
	Condition    enums.PartCondition `json:"condition"`
	Urgency      enums.Urgency       `json:"urgency"`
	Budget       *decimal.Decimal    `json:"budget,omitempty"`
	Parish       string              `json:"parish"`
	VisibleSince time.Time           `json:"visible_since"`
}
