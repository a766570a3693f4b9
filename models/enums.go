package models

type TankType string

const (
	TankTypeFermenter TankType = "FERMENTER"
	TankTypeBrite     TankType = "BRITE"
	TankTypeKettle    TankType = "KETTLE"
)

func (t TankType) IsValid() bool {
	switch t {
	case TankTypeFermenter, TankTypeBrite, TankTypeKettle:
		return true
	}
	return false
}

type TankStatus string

const (
	TankStatusAvailable   TankStatus = "AVAILABLE"
	TankStatusInUse       TankStatus = "IN_USE"
	TankStatusCleaning    TankStatus = "CLEANING"
	TankStatusMaintenance TankStatus = "MAINTENANCE"
	TankStatusNeedsCIP    TankStatus = "NEEDS_CIP"
)

func (s TankStatus) IsValid() bool {
	switch s {
	case TankStatusAvailable, TankStatusInUse, TankStatusCleaning, TankStatusMaintenance, TankStatusNeedsCIP:
		return true
	}
	return false
}

type BatchStatus string

const (
	BatchStatusPlanned      BatchStatus = "PLANNED"
	BatchStatusBrewing      BatchStatus = "BREWING"
	BatchStatusFermenting   BatchStatus = "FERMENTING"
	BatchStatusConditioning BatchStatus = "CONDITIONING"
	BatchStatusPackaging    BatchStatus = "PACKAGING"
	BatchStatusReady        BatchStatus = "READY"
	BatchStatusPackaged     BatchStatus = "PACKAGED"
	BatchStatusCancelled    BatchStatus = "CANCELLED"
)

// batchStatusOrder is the forward-only lifecycle. CANCELLED sits outside the
// chain and is reachable from any non-terminal status.
var batchStatusOrder = []BatchStatus{
	BatchStatusPlanned,
	BatchStatusBrewing,
	BatchStatusFermenting,
	BatchStatusConditioning,
	BatchStatusPackaging,
	BatchStatusReady,
	BatchStatusPackaged,
}

func (s BatchStatus) IsTerminal() bool {
	return s == BatchStatusPackaged || s == BatchStatusCancelled
}

// PrecedingStatus returns the status that must be current before advancing to s.
func (s BatchStatus) PrecedingStatus() (BatchStatus, bool) {
	for i, status := range batchStatusOrder {
		if status == s && i > 0 {
			return batchStatusOrder[i-1], true
		}
	}
	return "", false
}

type AssignmentStatus string

const (
	AssignmentStatusPlanned   AssignmentStatus = "PLANNED"
	AssignmentStatusActive    AssignmentStatus = "ACTIVE"
	AssignmentStatusCompleted AssignmentStatus = "COMPLETED"
)

type AssignmentPhase string

const (
	AssignmentPhaseFermentation AssignmentPhase = "FERMENTATION"
	AssignmentPhaseBright       AssignmentPhase = "BRIGHT"
	AssignmentPhasePackaging    AssignmentPhase = "PACKAGING"
)

var assignmentPhaseOrder = []AssignmentPhase{
	AssignmentPhaseFermentation,
	AssignmentPhaseBright,
	AssignmentPhasePackaging,
}

func (p AssignmentPhase) IsValid() bool {
	for _, phase := range assignmentPhaseOrder {
		if phase == p {
			return true
		}
	}
	return false
}

// Rank orders phases so the scheduler can refuse to move a vessel backwards.
func (p AssignmentPhase) Rank() int {
	for i, phase := range assignmentPhaseOrder {
		if phase == p {
			return i
		}
	}
	return -1
}

type TimelineEntryType string

const (
	TimelineFermentationPlanned TimelineEntryType = "FERMENTATION_PLANNED"
	TimelineBrewingStarted      TimelineEntryType = "BREWING_STARTED"
	TimelineFermentationStarted TimelineEntryType = "FERMENTATION_STARTED"
	TimelineGravityReading      TimelineEntryType = "GRAVITY_READING"
	TimelineTransferPlanned     TimelineEntryType = "TRANSFER_PLANNED"
	TimelineTransferExecuted    TimelineEntryType = "TRANSFER_EXECUTED"
	TimelinePhaseChanged        TimelineEntryType = "PHASE_CHANGED"
	TimelineAssignmentCompleted TimelineEntryType = "ASSIGNMENT_COMPLETED"
	TimelineBatchCancelled      TimelineEntryType = "BATCH_CANCELLED"
)
