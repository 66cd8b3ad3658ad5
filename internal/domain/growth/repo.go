package growth

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrInvalidMeasurement  = errors.New("invalid measurement")
	ErrMeasurementNotFound = errors.New("measurement not found")
)

// PatientRepository reads the patient fields the growth engine depends on.
type PatientRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
}

type MeasurementRepository interface {
	Create(ctx context.Context, m *Measurement) error
	GetByID(ctx context.Context, id uuid.UUID) (*Measurement, error)
	// ListByPatient pages through a patient's measurements, newest first.
	// A nil t returns every measurement type.
	ListByPatient(ctx context.Context, patientID uuid.UUID, t *MeasurementType, limit, offset int) ([]*Measurement, int, error)
	// History returns every measurement of type t for the patient in date order.
	History(ctx context.Context, patientID uuid.UUID, t MeasurementType) ([]Measurement, error)
}

// ReferenceWriter replaces the stored rows of one reference table.
type ReferenceWriter interface {
	ReplaceReference(ctx context.Context, g Gender, t MeasurementType, points []ReferencePoint) error
}

type ReferenceRepository interface {
	ReferenceLoader
	ReferenceWriter
}
