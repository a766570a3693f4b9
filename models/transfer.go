package models

import "time"

// TankTransfer is the planned (and later executed) movement of a lot from
// its current tank to a destination tank. Planning one requires the
// destination to be free for the remainder of the lot's occupancy.
type TankTransfer struct {
	ID         int        `gorm:"primary_key" json:"id"`
	BreweryId  string     `gorm:"index;not null" json:"brewery_id"`
	LotId      int        `gorm:"index;not null" json:"lot_id"`
	FromTankId int        `gorm:"not null" json:"from_tank_id"`
	ToTankId   int        `gorm:"not null" json:"to_tank_id"`
	PlannedAt  time.Time  `gorm:"not null" json:"planned_at"`
	ExecutedAt *time.Time `json:"executed_at"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
