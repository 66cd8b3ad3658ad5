package growth

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// refPoint builds a row with L=1 and S=0.1, so that z = 10*(v/m - 1) and the
// SD curves sit at m*(1+0.1k).
func refPoint(age int, m float64) ReferencePoint {
	sd := func(k float64) float64 { return m * (1 + 0.1*k) }
	return ReferencePoint{
		AgeDays: age, L: 1, M: m, S: 0.1,
		SD3Neg: sd(-3), SD2Neg: sd(-2), SD1Neg: sd(-1), SD0: m,
		SD1: sd(1), SD2: sd(2), SD3: sd(3),
	}
}

func testSeries(g Gender, t MeasurementType) []ReferencePoint {
	pts := []ReferencePoint{
		refPoint(0, 3.0),
		refPoint(30, 4.0),
		refPoint(60, 5.0),
		refPoint(365, 9.0),
		refPoint(MaxAgeDays, 18.0),
	}
	for i := range pts {
		pts[i].Gender = g
	}
	if t == Height {
		for i := range pts {
			scale := 5.0
			pts[i] = refPoint(pts[i].AgeDays, pts[i].M*scale+35)
			pts[i].Gender = g
		}
	}
	return pts
}

func mustSeries(g Gender, t MeasurementType, pts []ReferencePoint) *ReferenceSeries {
	rs, err := NewReferenceSeries(g, t, pts)
	if err != nil {
		panic(err)
	}
	return rs
}

// mockLoader serves fixed tables and counts loads per key.
type mockLoader struct {
	mu     sync.Mutex
	tables map[SeriesKey][]ReferencePoint
	loads  map[SeriesKey]int
	err    error
}

func newMockLoader() *mockLoader {
	l := &mockLoader{tables: map[SeriesKey][]ReferencePoint{}, loads: map[SeriesKey]int{}}
	for _, k := range AllSeriesKeys() {
		l.tables[k] = testSeries(k.Gender, k.Type)
	}
	return l
}

func (l *mockLoader) LoadReference(_ context.Context, g Gender, t MeasurementType) ([]ReferencePoint, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := SeriesKey{Gender: g, Type: t}
	l.loads[key]++
	if l.err != nil {
		return nil, l.err
	}
	return l.tables[key], nil
}

func (l *mockLoader) count(key SeriesKey) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads[key]
}

func (l *mockLoader) ReplaceReference(_ context.Context, g Gender, t MeasurementType, points []ReferencePoint) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tables[SeriesKey{Gender: g, Type: t}] = points
	return nil
}

func newTestEngine(loader ReferenceLoader, opts CalculatorOptions) *Engine {
	return NewEngine(NewReferenceStore(loader, zerolog.Nop()), NewCalculator(opts))
}

type mockPatientRepo struct {
	patients map[uuid.UUID]*Patient
}

func (r *mockPatientRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return p, nil
}

type mockMeasurementRepo struct {
	store map[uuid.UUID]*Measurement
	seq   int
}

func newMockMeasurementRepo() *mockMeasurementRepo {
	return &mockMeasurementRepo{store: make(map[uuid.UUID]*Measurement)}
}

func (r *mockMeasurementRepo) Create(_ context.Context, m *Measurement) error {
	m.ID = uuid.New()
	r.seq++
	m.CreatedAt = time.Date(2026, 1, 1, 0, 0, r.seq, 0, time.UTC)
	cp := *m
	r.store[m.ID] = &cp
	return nil
}

func (r *mockMeasurementRepo) GetByID(_ context.Context, id uuid.UUID) (*Measurement, error) {
	m, ok := r.store[id]
	if !ok {
		return nil, ErrMeasurementNotFound
	}
	return m, nil
}

func (r *mockMeasurementRepo) sorted(patientID uuid.UUID, t *MeasurementType) []*Measurement {
	var out []*Measurement
	for _, m := range r.store {
		if m.PatientID == patientID && (t == nil || m.Type == *t) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r *mockMeasurementRepo) ListByPatient(_ context.Context, patientID uuid.UUID, t *MeasurementType, limit, offset int) ([]*Measurement, int, error) {
	all := r.sorted(patientID, t)
	total := len(all)
	if offset >= total {
		return []*Measurement{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (r *mockMeasurementRepo) History(_ context.Context, patientID uuid.UUID, t MeasurementType) ([]Measurement, error) {
	var out []Measurement
	for _, m := range r.sorted(patientID, &t) {
		out = append(out, *m)
	}
	return out, nil
}

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(fmt.Sprintf("bad test date %q: %v", s, err))
	}
	return t
}

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func measurement(d string, ageDays int, t MeasurementType, v float64) Measurement {
	return Measurement{Date: date(d), AgeDays: ageDays, Type: t, Value: v}
}
