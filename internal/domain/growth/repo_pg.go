package growth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// =========== Patient Repository ===========

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	var p Patient
	var gender string
	err := r.pool.QueryRow(ctx, `SELECT id, date_of_birth, gender FROM patient WHERE id = $1`, id).
		Scan(&p.ID, &p.DateOfBirth, &gender)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Gender = Gender(gender)
	return &p, nil
}

// =========== Measurement Repository ===========

type measurementRepoPG struct{ pool *pgxpool.Pool }

func NewMeasurementRepoPG(pool *pgxpool.Pool) MeasurementRepository {
	return &measurementRepoPG{pool: pool}
}

const measurementCols = `id, patient_id, measured_at, age_days, measurement_type, value, z_score, percentile, classification, created_at`

func scanMeasurement(row pgx.Row) (*Measurement, error) {
	var m Measurement
	var mt string
	err := row.Scan(&m.ID, &m.PatientID, &m.Date, &m.AgeDays, &mt, &m.Value,
		&m.ZScore, &m.Percentile, &m.Classification, &m.CreatedAt)
	m.Type = MeasurementType(mt)
	return &m, err
}

func (r *measurementRepoPG) Create(ctx context.Context, m *Measurement) error {
	m.ID = uuid.New()
	return r.pool.QueryRow(ctx, `
		INSERT INTO growth_measurement (id, patient_id, measured_at, age_days, measurement_type, value, z_score, percentile, classification)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at`,
		m.ID, m.PatientID, m.Date, m.AgeDays, string(m.Type), m.Value, m.ZScore, m.Percentile, m.Classification,
	).Scan(&m.CreatedAt)
}

func (r *measurementRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Measurement, error) {
	m, err := scanMeasurement(r.pool.QueryRow(ctx, `SELECT `+measurementCols+` FROM growth_measurement WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrMeasurementNotFound
	}
	return m, err
}

func (r *measurementRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, t *MeasurementType, limit, offset int) ([]*Measurement, int, error) {
	where := `WHERE patient_id = $1`
	args := []interface{}{patientID}
	if t != nil {
		where += ` AND measurement_type = $2`
		args = append(args, string(*t))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM growth_measurement `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM growth_measurement %s ORDER BY measured_at DESC, created_at DESC LIMIT $%d OFFSET $%d`,
		measurementCols, where, len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Measurement
	for rows.Next() {
		m, err := scanMeasurement(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, rows.Err()
}

func (r *measurementRepoPG) History(ctx context.Context, patientID uuid.UUID, t MeasurementType) ([]Measurement, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+measurementCols+` FROM growth_measurement
		WHERE patient_id = $1 AND measurement_type = $2 ORDER BY measured_at, created_at`, patientID, string(t))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Measurement
	for rows.Next() {
		m, err := scanMeasurement(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *m)
	}
	return items, rows.Err()
}

// =========== WHO Reference Repository ===========

type referenceRepoPG struct{ pool *pgxpool.Pool }

// NewReferenceRepoPG returns a ReferenceLoader and ReferenceWriter backed by
// the who_reference table.
func NewReferenceRepoPG(pool *pgxpool.Pool) ReferenceRepository {
	return &referenceRepoPG{pool: pool}
}

const referenceCols = `age_days, l_value, m_value, s_value, sd4neg, sd3neg, sd2neg, sd1neg, sd0, sd1, sd2, sd3, sd4`

func (r *referenceRepoPG) LoadReference(ctx context.Context, g Gender, t MeasurementType) ([]ReferencePoint, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+referenceCols+` FROM who_reference
		WHERE gender = $1 AND measurement_type = $2 ORDER BY age_days`, string(g), string(t))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var points []ReferencePoint
	for rows.Next() {
		p := ReferencePoint{Gender: g}
		if err := rows.Scan(&p.AgeDays, &p.L, &p.M, &p.S, &p.SD4Neg, &p.SD3Neg, &p.SD2Neg,
			&p.SD1Neg, &p.SD0, &p.SD1, &p.SD2, &p.SD3, &p.SD4); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func (r *referenceRepoPG) ReplaceReference(ctx context.Context, g Gender, t MeasurementType, points []ReferencePoint) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM who_reference WHERE gender = $1 AND measurement_type = $2`,
		string(g), string(t)); err != nil {
		return fmt.Errorf("clear %s/%s: %w", g, t, err)
	}

	batch := &pgx.Batch{}
	for _, p := range points {
		batch.Queue(`INSERT INTO who_reference (gender, measurement_type, `+referenceCols+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
			string(g), string(t), p.AgeDays, p.L, p.M, p.S, p.SD4Neg, p.SD3Neg, p.SD2Neg,
			p.SD1Neg, p.SD0, p.SD1, p.SD2, p.SD3, p.SD4)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert %s/%s: %w", g, t, err)
	}
	return tx.Commit(ctx)
}
