package growth

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const sqliteReferenceSchema = `
CREATE TABLE IF NOT EXISTS who_reference (
    gender           TEXT NOT NULL,
    measurement_type TEXT NOT NULL,
    age_days         INTEGER NOT NULL,
    l_value          REAL NOT NULL,
    m_value          REAL NOT NULL,
    s_value          REAL NOT NULL,
    sd4neg           REAL,
    sd3neg           REAL NOT NULL,
    sd2neg           REAL NOT NULL,
    sd1neg           REAL NOT NULL,
    sd0              REAL NOT NULL,
    sd1              REAL NOT NULL,
    sd2              REAL NOT NULL,
    sd3              REAL NOT NULL,
    sd4              REAL,
    PRIMARY KEY (gender, measurement_type, age_days)
)`

// SQLiteReferenceRepo stores WHO tables in a local SQLite file so reference
// data can be used without a Postgres server.
type SQLiteReferenceRepo struct {
	db *sql.DB
}

// OpenSQLiteReferenceRepo opens (and if needed creates) the reference file at path.
func OpenSQLiteReferenceRepo(ctx context.Context, path string) (*SQLiteReferenceRepo, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, sqliteReferenceSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create who_reference table: %w", err)
	}
	return &SQLiteReferenceRepo{db: db}, nil
}

func (r *SQLiteReferenceRepo) Close() error {
	return r.db.Close()
}

func (r *SQLiteReferenceRepo) LoadReference(ctx context.Context, g Gender, t MeasurementType) ([]ReferencePoint, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+referenceCols+` FROM who_reference
		WHERE gender = ? AND measurement_type = ? ORDER BY age_days`, string(g), string(t))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var points []ReferencePoint
	for rows.Next() {
		p := ReferencePoint{Gender: g}
		var sd4neg, sd4 sql.NullFloat64
		if err := rows.Scan(&p.AgeDays, &p.L, &p.M, &p.S, &sd4neg, &p.SD3Neg, &p.SD2Neg,
			&p.SD1Neg, &p.SD0, &p.SD1, &p.SD2, &p.SD3, &sd4); err != nil {
			return nil, err
		}
		if sd4neg.Valid {
			p.SD4Neg = ptrFloat(sd4neg.Float64)
		}
		if sd4.Valid {
			p.SD4 = ptrFloat(sd4.Float64)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func (r *SQLiteReferenceRepo) ReplaceReference(ctx context.Context, g Gender, t MeasurementType, points []ReferencePoint) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM who_reference WHERE gender = ? AND measurement_type = ?`,
		string(g), string(t)); err != nil {
		return fmt.Errorf("clear %s/%s: %w", g, t, err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO who_reference (gender, measurement_type, `+referenceCols+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, p := range points {
		if _, err := stmt.ExecContext(ctx, string(g), string(t), p.AgeDays, p.L, p.M, p.S,
			nullFloat(p.SD4Neg), p.SD3Neg, p.SD2Neg, p.SD1Neg, p.SD0, p.SD1, p.SD2, p.SD3, nullFloat(p.SD4)); err != nil {
			return fmt.Errorf("insert %s/%s age %d: %w", g, t, p.AgeDays, err)
		}
	}
	return tx.Commit()
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}
