package growth

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func newTestService() (*Service, *Patient, *mockMeasurementRepo) {
	p := &Patient{ID: uuid.New(), DateOfBirth: date("2025-01-01"), Gender: GenderMale}
	patients := &mockPatientRepo{patients: map[uuid.UUID]*Patient{p.ID: p}}
	measurements := newMockMeasurementRepo()
	engine := newTestEngine(newMockLoader(), CalculatorOptions{})
	return NewService(patients, measurements, engine, zerolog.Nop()), p, measurements
}

func TestService_RecordMeasurement(t *testing.T) {
	svc, p, repo := newTestService()
	m := &Measurement{PatientID: p.ID, Date: date("2025-01-31"), Type: Weight, Value: 4.4}

	if err := svc.RecordMeasurement(context.Background(), m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.ID == uuid.Nil {
		t.Error("expected ID to be assigned")
	}
	if m.AgeDays != 30 {
		t.Errorf("expected age 30, got %d", m.AgeDays)
	}
	stored := repo.store[m.ID]
	if stored == nil || stored.ZScore == nil || *stored.ZScore != 1 {
		t.Fatalf("expected stored z 1, got %+v", stored)
	}
	if stored.Classification == nil || *stored.Classification != ClassNormalWeight {
		t.Errorf("unexpected stored classification %v", stored.Classification)
	}
}

func TestService_RecordMeasurement_OutOfRangeStoredUnscored(t *testing.T) {
	svc, p, repo := newTestService()
	m := &Measurement{PatientID: p.ID, Date: date("2031-01-01"), Type: Height, Value: 120}

	if err := svc.RecordMeasurement(context.Background(), m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored := repo.store[m.ID]
	if stored == nil {
		t.Fatal("expected measurement to be stored")
	}
	if stored.ZScore != nil || stored.Percentile != nil || stored.Classification != nil {
		t.Errorf("expected no scores past the table range, got %+v", stored)
	}
}

func TestService_RecordMeasurement_Errors(t *testing.T) {
	svc, p, _ := newTestService()
	tests := []struct {
		name string
		m    *Measurement
		want error
	}{
		{"unknown patient", &Measurement{PatientID: uuid.New(), Date: date("2025-02-01"), Type: Weight, Value: 4}, ErrPatientNotFound},
		{"missing patient", &Measurement{Date: date("2025-02-01"), Type: Weight, Value: 4}, ErrInvalidMeasurement},
		{"zero value", &Measurement{PatientID: p.ID, Date: date("2025-02-01"), Type: Weight, Value: 0}, ErrInvalidMeasurement},
		{"bad type", &Measurement{PatientID: p.ID, Date: date("2025-02-01"), Type: "bmi", Value: 4}, ErrInvalidMeasurement},
		{"missing date", &Measurement{PatientID: p.ID, Type: Weight, Value: 4}, ErrInvalidMeasurement},
		{"before birth", &Measurement{PatientID: p.ID, Date: date("2024-12-01"), Type: Weight, Value: 4}, ErrInvalidMeasurement},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.RecordMeasurement(context.Background(), tt.m)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func record(t *testing.T, svc *Service, p *Patient, d string, mt MeasurementType, v float64) {
	t.Helper()
	if err := svc.RecordMeasurement(context.Background(), &Measurement{PatientID: p.ID, Date: date(d), Type: mt, Value: v}); err != nil {
		t.Fatalf("record %s: %v", d, err)
	}
}

func TestService_GrowthViews(t *testing.T) {
	svc, p, _ := newTestService()
	ctx := context.Background()
	record(t, svc, p, "2025-01-01", Weight, 3.0)
	record(t, svc, p, "2025-01-31", Weight, 4.0)
	record(t, svc, p, "2025-03-02", Weight, 5.0)
	record(t, svc, p, "2025-03-02", Height, 60)

	trend, err := svc.Trend(ctx, p.ID, Weight, DateRange{})
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	if len(trend.Points) != 3 || trend.Status != StatusOK {
		t.Errorf("unexpected trend %+v", trend)
	}

	v, err := svc.Velocity(ctx, p.ID, Weight, DateRange{})
	if err != nil || v == nil {
		t.Fatalf("velocity: %v %v", v, err)
	}
	if v.TotalChange != 2 {
		t.Errorf("expected total change 2, got %v", v.TotalChange)
	}

	hv, err := svc.Velocity(ctx, p.ID, Height, DateRange{})
	if err != nil || hv != nil {
		t.Errorf("expected nil height velocity, got %+v %v", hv, err)
	}

	proj, err := svc.Projection(ctx, p.ID, Weight, 6)
	if err != nil || proj.Status != StatusOK || len(proj.Projections) != 2 {
		t.Errorf("unexpected projection %+v %v", proj, err)
	}

	pct, err := svc.Percentile(ctx, p.ID, Weight)
	if err != nil || pct.Score == nil || *pct.Score.Percentile != 50 {
		t.Errorf("unexpected percentile %+v %v", pct, err)
	}

	chart, err := svc.Chart(ctx, p.ID, Weight, 0)
	if err != nil {
		t.Fatalf("chart: %v", err)
	}
	if chart.PatientID != p.ID || len(chart.Points) != 3 || len(chart.Reference.Points) == 0 {
		t.Errorf("unexpected chart %+v", chart)
	}

	pop, err := svc.ComparePopulation(ctx, p.ID, Height)
	if err != nil || pop.Position != PositionAt {
		t.Errorf("unexpected population comparison %+v %v", pop, err)
	}

	items, total, err := svc.ListMeasurements(ctx, p.ID, nil, 2, 0)
	if err != nil || total != 4 || len(items) != 2 {
		t.Errorf("unexpected listing: %d items, total %d, err %v", len(items), total, err)
	}
}

func TestService_UnknownPatient(t *testing.T) {
	svc, _, _ := newTestService()
	if _, err := svc.Trend(context.Background(), uuid.New(), Weight, DateRange{}); !errors.Is(err, ErrPatientNotFound) {
		t.Errorf("expected ErrPatientNotFound, got %v", err)
	}
	if _, err := svc.Compare(context.Background(), uuid.New(), ComparisonRequest{Mode: CompareAge}); !errors.Is(err, ErrPatientNotFound) {
		t.Errorf("expected ErrPatientNotFound, got %v", err)
	}
}
