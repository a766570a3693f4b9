package models

import (
	"context"
	"time"

	"github.com/brewcrafthq/brewery_backend/config"
	"github.com/brewcrafthq/brewery_backend/utils"
	"github.com/shopspring/decimal"
)

type Tank struct {
	ID             int             `gorm:"primary_key" json:"id"`
	BreweryId      string          `gorm:"index;not null" json:"brewery_id"`
	Name           string          `gorm:"size:100;not null" json:"name" binding:"required"`
	Type           TankType        `gorm:"size:20;not null" json:"type" binding:"required"`
	CapacityLiters decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"capacity_liters"`
	Status         TankStatus      `gorm:"size:20;not null;index" json:"status"`
	Location       string          `gorm:"size:255" json:"location"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewTank struct {
	Name           string          `json:"name" binding:"required"`
	Type           TankType        `json:"type" binding:"required"`
	CapacityLiters decimal.Decimal `json:"capacity_liters" binding:"required"`
	Location       string          `json:"location"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewTank) validate(ctx context.Context, breweryId string, id int) error {
	if !input.Type.IsValid() {
		return utils.NewInvalidInputError("invalid tank type")
	}
	if !input.CapacityLiters.IsPositive() {
		return utils.NewInvalidInputError("capacity must be positive")
	}
	// name
	if err := utils.ValidateUnique[Tank](ctx, breweryId, "name", input.Name, id); err != nil {
		return err
	}
	return nil
}

func CreateTank(ctx context.Context, input *NewTank) (*Tank, error) {

	breweryId, ok := utils.GetBreweryIdFromContext(ctx)
	if !ok || breweryId == "" {
		return nil, utils.NewInvalidInputError("brewery id is required")
	}

	if err := input.validate(ctx, breweryId, 0); err != nil {
		return nil, err
	}

	tank := Tank{
		BreweryId:      breweryId,
		Name:           input.Name,
		Type:           input.Type,
		CapacityLiters: input.CapacityLiters,
		Status:         TankStatusAvailable,
		Location:       input.Location,
	}

	// db action
	db := config.GetDB()
	err := db.WithContext(ctx).Create(&tank).Error
	if err != nil {
		return nil, err
	}
	return &tank, nil
}

func UpdateTank(ctx context.Context, id int, input *NewTank) (*Tank, error) {

	breweryId, ok := utils.GetBreweryIdFromContext(ctx)
	if !ok || breweryId == "" {
		return nil, utils.NewInvalidInputError("brewery id is required")
	}

	if err := input.validate(ctx, breweryId, id); err != nil {
		return nil, err
	}

	tank, err := utils.FetchModel[Tank](ctx, breweryId, id)
	if err != nil {
		return nil, err
	}

	// db action
	db := config.GetDB()
	err = db.WithContext(ctx).Model(&tank).Updates(map[string]interface{}{
		"Name":           input.Name,
		"Type":           input.Type,
		"CapacityLiters": input.CapacityLiters,
		"Location":       input.Location,
	}).Error
	if err != nil {
		return nil, err
	}

	return tank, nil
}

func DeleteTank(ctx context.Context, id int) (*Tank, error) {

	breweryId, ok := utils.GetBreweryIdFromContext(ctx)
	if !ok || breweryId == "" {
		return nil, utils.NewInvalidInputError("brewery id is required")
	}

	db := config.GetDB()
	tank, err := utils.FetchModel[Tank](ctx, breweryId, id)
	if err != nil {
		return nil, err
	}

	// check if tank still has open bookings
	var count int64
	if err := db.WithContext(ctx).Model(&TankAssignment{}).
		Where("brewery_id = ? AND tank_id = ? AND status IN ?", breweryId, id,
			[]AssignmentStatus{AssignmentStatusPlanned, AssignmentStatusActive}).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, utils.NewInvalidInputError("tank has planned or active assignments")
	}

	// db action
	err = db.WithContext(ctx).Delete(&tank).Error
	if err != nil {
		return nil, err
	}
	return tank, nil
}

func GetTank(ctx context.Context, id int) (*Tank, error) {
	breweryId, ok := utils.GetBreweryIdFromContext(ctx)
	if !ok || breweryId == "" {
		return nil, utils.NewInvalidInputError("brewery id is required")
	}
	return utils.FetchModel[Tank](ctx, breweryId, id)
}

func ListTanks(ctx context.Context, tankType *TankType, status *TankStatus) ([]*Tank, error) {
	breweryId, ok := utils.GetBreweryIdFromContext(ctx)
	if !ok || breweryId == "" {
		return nil, utils.NewInvalidInputError("brewery id is required")
	}

	db := config.GetDB()
	var results []*Tank

	dbCtx := db.WithContext(ctx).Where("brewery_id = ?", breweryId)
	if tankType != nil && len(*tankType) > 0 {
		dbCtx = dbCtx.Where("type = ?", *tankType)
	}
	if status != nil && len(*status) > 0 {
		dbCtx = dbCtx.Where("status = ?", *status)
	}
	// db query
	err := dbCtx.Order("name").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// CompleteCIP closes the cleaning cycle and returns the tank to service.
// The CIP workflow itself runs outside this service; this is its callback.
func CompleteCIP(ctx context.Context, id int) (*Tank, error) {
	breweryId, ok := utils.GetBreweryIdFromContext(ctx)
	if !ok || breweryId == "" {
		return nil, utils.NewInvalidInputError("brewery id is required")
	}

	tank, err := utils.FetchModel[Tank](ctx, breweryId, id)
	if err != nil {
		return nil, err
	}
	if tank.Status != TankStatusNeedsCIP && tank.Status != TankStatusCleaning {
		return nil, utils.NewInvalidInputError("tank is not awaiting cleaning")
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&tank).
		Update("Status", TankStatusAvailable).Error; err != nil {
		return nil, err
	}
	tank.Status = TankStatusAvailable
	return tank, nil
}
