package growth

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxAgeDays is the upper bound of the WHO 0-5 year tables plus a one month buffer.
const MaxAgeDays = 1856

// Average month and year lengths used by WHO for age and velocity conversions.
const (
	DaysPerMonth = 30.44
	DaysPerYear  = 365.25
)

// Gender is the biological sex used to select a WHO reference table.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// ParseGender accepts the spellings used by intake forms and legacy exports.
func ParseGender(s string) (Gender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male", "m", "boy", "1":
		return GenderMale, nil
	case "female", "f", "girl", "2":
		return GenderFemale, nil
	}
	return "", fmt.Errorf("unknown gender %q", s)
}

func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// MeasurementType identifies an anthropometric indicator.
type MeasurementType string

const (
	Weight            MeasurementType = "weight"
	Height            MeasurementType = "height"
	HeadCircumference MeasurementType = "head_circumference"
)

// MeasurementTypes lists every supported indicator in a stable order.
var MeasurementTypes = []MeasurementType{Weight, Height, HeadCircumference}

func ParseMeasurementType(s string) (MeasurementType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "weight", "wfa":
		return Weight, nil
	case "height", "length", "hfa", "lhfa":
		return Height, nil
	case "head_circumference", "head-circumference", "headcircumference", "hc", "hcfa":
		return HeadCircumference, nil
	}
	return "", fmt.Errorf("unknown measurement type %q", s)
}

func (t MeasurementType) Valid() bool {
	switch t {
	case Weight, Height, HeadCircumference:
		return true
	}
	return false
}

// Unit returns the unit WHO tables use for the indicator.
func (t MeasurementType) Unit() string {
	switch t {
	case Weight:
		return "kg"
	case Height, HeadCircumference:
		return "cm"
	}
	return ""
}

// SeriesKey identifies one reference table.
type SeriesKey struct {
	Gender Gender
	Type   MeasurementType
}

func (k SeriesKey) String() string {
	return string(k.Gender) + "/" + string(k.Type)
}

// AllSeriesKeys returns every (gender, measurement type) pair.
func AllSeriesKeys() []SeriesKey {
	keys := make([]SeriesKey, 0, 6)
	for _, g := range []Gender{GenderMale, GenderFemale} {
		for _, t := range MeasurementTypes {
			keys = append(keys, SeriesKey{Gender: g, Type: t})
		}
	}
	return keys
}

// ReferencePoint is one row of a WHO LMS table.
type ReferencePoint struct {
	AgeDays int     `db:"age_days" json:"age_days"`
	Gender  Gender  `db:"gender" json:"gender"`
	L       float64 `db:"l_value" json:"l"`
	M       float64 `db:"m_value" json:"m"`
	S       float64 `db:"s_value" json:"s"`

	SD4Neg *float64 `db:"sd4neg" json:"sd4neg,omitempty"`
	SD3Neg float64  `db:"sd3neg" json:"sd3neg"`
	SD2Neg float64  `db:"sd2neg" json:"sd2neg"`
	SD1Neg float64  `db:"sd1neg" json:"sd1neg"`
	SD0    float64  `db:"sd0" json:"sd0"`
	SD1    float64  `db:"sd1" json:"sd1"`
	SD2    float64  `db:"sd2" json:"sd2"`
	SD3    float64  `db:"sd3" json:"sd3"`
	SD4    *float64 `db:"sd4" json:"sd4,omitempty"`
}

// ReferenceSeries holds all points of one table sorted by age.
type ReferenceSeries struct {
	Gender Gender
	Type   MeasurementType
	Points []ReferencePoint
}

// NewReferenceSeries sorts points by age and rejects duplicate ages.
// An empty series is valid and means no reference data exists for the key.
func NewReferenceSeries(g Gender, t MeasurementType, points []ReferencePoint) (*ReferenceSeries, error) {
	sorted := make([]ReferencePoint, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].AgeDays < sorted[j].AgeDays })
	for i := 1; i < len(sorted); i++ {
		if sorted[i].AgeDays == sorted[i-1].AgeDays {
			return nil, fmt.Errorf("reference series %s/%s: duplicate age %d", g, t, sorted[i].AgeDays)
		}
	}
	for i := range sorted {
		if sorted[i].AgeDays < 0 {
			return nil, fmt.Errorf("reference series %s/%s: negative age %d", g, t, sorted[i].AgeDays)
		}
	}
	return &ReferenceSeries{Gender: g, Type: t, Points: sorted}, nil
}

func (s *ReferenceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Points)
}

// Patient is the slice of the patient record the growth engine needs.
type Patient struct {
	ID          uuid.UUID `db:"id" json:"id"`
	DateOfBirth time.Time `db:"date_of_birth" json:"date_of_birth"`
	Gender      Gender    `db:"gender" json:"gender"`
}

// AgeDaysAt returns the number of whole calendar days between birth and at.
func (p *Patient) AgeDaysAt(at time.Time) int {
	return AgeInDays(p.DateOfBirth, at)
}

func AgeInDays(dob, at time.Time) int {
	b := time.Date(dob.Year(), dob.Month(), dob.Day(), 0, 0, 0, 0, time.UTC)
	a := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
	return int(a.Sub(b).Hours() / 24)
}

// Measurement maps to the growth_measurement table.
type Measurement struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	PatientID      uuid.UUID       `db:"patient_id" json:"patient_id"`
	Date           time.Time       `db:"measured_at" json:"date"`
	AgeDays        int             `db:"age_days" json:"age_days"`
	Type           MeasurementType `db:"measurement_type" json:"type"`
	Value          float64         `db:"value" json:"value"`
	ZScore         *float64        `db:"z_score" json:"z_score,omitempty"`
	Percentile     *float64        `db:"percentile" json:"percentile,omitempty"`
	Classification *string         `db:"classification" json:"classification,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// Severity is the clinical severity band of a Z-score.
type Severity string

const (
	SeverityNormal   Severity = "normal"
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
	SeverityUnknown  Severity = "unknown"
)

// ReferenceValues are the curve values at the age a score was computed for.
type ReferenceValues struct {
	Median float64 `json:"median"`
	SD1Neg float64 `json:"sd1neg"`
	SD1    float64 `json:"sd1"`
	SD2Neg float64 `json:"sd2neg"`
	SD2    float64 `json:"sd2"`
	SD3Neg float64 `json:"sd3neg"`
	SD3    float64 `json:"sd3"`
}

// LMSParams are the Box-Cox parameters used for a score.
type LMSParams struct {
	L float64 `json:"l"`
	M float64 `json:"m"`
	S float64 `json:"s"`
}

// ZScoreResult is the outcome of scoring one measurement. A nil ZScore means
// the measurement could not be assessed; Classification says why.
type ZScoreResult struct {
	ZScore          *float64         `json:"z_score"`
	Percentile      *float64         `json:"percentile"`
	Classification  string           `json:"classification"`
	Severity        Severity         `json:"severity"`
	Recommendation  string           `json:"recommendation,omitempty"`
	ExactMatch      bool             `json:"exact_match"`
	Interpolated    bool             `json:"interpolated"`
	ReferenceValues *ReferenceValues `json:"reference_values,omitempty"`

	// Populated only when the calculator runs with diagnostics enabled.
	LMS     *LMSParams `json:"lms,omitempty"`
	AgeDays *int       `json:"age_days,omitempty"`
	Clamped bool       `json:"clamped,omitempty"`
}

// Valid reports whether a Z-score was produced.
func (r ZScoreResult) Valid() bool {
	return r.ZScore != nil
}

// VelocityResult is a rate of change between two measurements. It is always
// derived and never stored.
type VelocityResult struct {
	Type        MeasurementType `json:"type"`
	Unit        string          `json:"unit"`
	StartDate   time.Time       `json:"start_date"`
	EndDate     time.Time       `json:"end_date"`
	StartValue  float64         `json:"start_value"`
	EndValue    float64         `json:"end_value"`
	TotalChange float64         `json:"total_change"`
	DaysBetween int             `json:"days_between"`
	PerDay      float64         `json:"per_day"`
	PerWeek     float64         `json:"per_week"`
	PerMonth    float64         `json:"per_month"`
	PerYear     float64         `json:"per_year"`
}

// DateRange bounds a history query. Nil ends are open.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

func (r DateRange) Contains(t time.Time) bool {
	if r.Start != nil && t.Before(*r.Start) {
		return false
	}
	if r.End != nil && t.After(*r.End) {
		return false
	}
	return true
}

// Result statuses shared by trend, projection and comparison responses.
const (
	StatusOK               = "ok"
	StatusInsufficientData = "insufficient_data"
)

func ptrFloat(f float64) *float64 { return &f }

func ptrInt(i int) *int { return &i }
