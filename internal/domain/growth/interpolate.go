package growth

import "sort"

// LMSLookup is the reference point resolved for an age.
type LMSLookup struct {
	Point        *ReferencePoint
	ExactMatch   bool
	Interpolated bool
	// Clamped is set when the age was outside the table and the nearest
	// boundary row was returned instead of extrapolating.
	Clamped bool
}

// Lookup resolves the LMS parameters for ageDays. Ages between two rows are
// linearly interpolated; ages outside the table return the boundary row.
func Lookup(series *ReferenceSeries, ageDays int) LMSLookup {
	if series.Len() == 0 {
		return LMSLookup{}
	}
	pts := series.Points

	i := sort.Search(len(pts), func(i int) bool { return pts[i].AgeDays >= ageDays })
	if i < len(pts) && pts[i].AgeDays == ageDays {
		p := pts[i]
		return LMSLookup{Point: &p, ExactMatch: true}
	}
	if i == 0 {
		p := pts[0]
		return LMSLookup{Point: &p, Interpolated: true, Clamped: true}
	}
	if i == len(pts) {
		p := pts[len(pts)-1]
		return LMSLookup{Point: &p, Interpolated: true, Clamped: true}
	}

	p := interpolatePoint(pts[i-1], pts[i], ageDays)
	return LMSLookup{Point: &p, Interpolated: true}
}

func interpolatePoint(lower, upper ReferencePoint, ageDays int) ReferencePoint {
	progress := 0.0
	if span := upper.AgeDays - lower.AgeDays; span != 0 {
		progress = float64(ageDays-lower.AgeDays) / float64(span)
	}
	lerp := func(a, b float64) float64 { return a + (b-a)*progress }
	lerpOpt := func(a, b *float64) *float64 {
		if a == nil || b == nil {
			return nil
		}
		v := lerp(*a, *b)
		return &v
	}

	return ReferencePoint{
		AgeDays: ageDays,
		Gender:  lower.Gender,
		L:       lerp(lower.L, upper.L),
		M:       lerp(lower.M, upper.M),
		S:       lerp(lower.S, upper.S),
		SD4Neg:  lerpOpt(lower.SD4Neg, upper.SD4Neg),
		SD3Neg:  lerp(lower.SD3Neg, upper.SD3Neg),
		SD2Neg:  lerp(lower.SD2Neg, upper.SD2Neg),
		SD1Neg:  lerp(lower.SD1Neg, upper.SD1Neg),
		SD0:     lerp(lower.SD0, upper.SD0),
		SD1:     lerp(lower.SD1, upper.SD1),
		SD2:     lerp(lower.SD2, upper.SD2),
		SD3:     lerp(lower.SD3, upper.SD3),
		SD4:     lerpOpt(lower.SD4, upper.SD4),
	}
}
