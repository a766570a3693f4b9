package models

import "time"

// TankAssignment is the booking record: one tank occupied by one lot for a
// time window. The no-double-booking invariant is enforced over assignments
// with status PLANNED or ACTIVE using half-open [start, end) intervals.
type TankAssignment struct {
	ID           int              `gorm:"primary_key" json:"id"`
	BreweryId    string           `gorm:"index;not null" json:"brewery_id"`
	LotId        int              `gorm:"index;not null" json:"lot_id"`
	TankId       int              `gorm:"index;not null" json:"tank_id"`
	PlannedStart time.Time        `gorm:"not null" json:"planned_start"`
	PlannedEnd   time.Time        `gorm:"not null" json:"planned_end"`
	StartedAt    *time.Time       `json:"started_at"`
	EndedAt      *time.Time       `json:"ended_at"`
	Status       AssignmentStatus `gorm:"size:20;not null;index" json:"status"`
	Phase        AssignmentPhase  `gorm:"size:20;not null" json:"phase"`
	Notes        string           `gorm:"type:text" json:"notes"`
	CreatedAt    time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

// EffectiveStart is the interval start used for conflict checks:
// plannedStart while PLANNED, startedAt once the lot is in the tank.
func (a *TankAssignment) EffectiveStart() time.Time {
	if a.Status == AssignmentStatusActive && a.StartedAt != nil {
		return *a.StartedAt
	}
	return a.PlannedStart
}

// Overlaps reports whether the assignment's effective interval intersects
// [start, end). Touching boundaries do not overlap, so back-to-back
// bookings are allowed.
func (a *TankAssignment) Overlaps(start, end time.Time) bool {
	return a.EffectiveStart().Before(end) && start.Before(a.PlannedEnd)
}
