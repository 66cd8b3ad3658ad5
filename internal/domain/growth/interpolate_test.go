package growth

import "testing"

func TestLookup_ExactMatch(t *testing.T) {
	rs := mustSeries(GenderMale, Weight, testSeries(GenderMale, Weight))

	lk := Lookup(rs, 365)
	if lk.Point == nil {
		t.Fatal("expected a point")
	}
	if !lk.ExactMatch || lk.Interpolated || lk.Clamped {
		t.Errorf("expected exact match only, got %+v", lk)
	}
	if lk.Point.M != 9.0 {
		t.Errorf("expected M 9.0, got %v", lk.Point.M)
	}
}

func TestLookup_Interpolates(t *testing.T) {
	pts := []ReferencePoint{refPoint(30, 4.0), refPoint(60, 5.0)}
	pts[0].SD4 = ptrFloat(6.0)
	pts[1].SD4 = ptrFloat(8.0)
	pts[0].SD4Neg = ptrFloat(2.0)
	rs := mustSeries(GenderFemale, Weight, pts)

	lk := Lookup(rs, 45)
	if lk.Point == nil {
		t.Fatal("expected a point")
	}
	if lk.ExactMatch || !lk.Interpolated || lk.Clamped {
		t.Errorf("expected interpolated, got %+v", lk)
	}
	if !approx(lk.Point.M, 4.5, 1e-12) {
		t.Errorf("expected M 4.5, got %v", lk.Point.M)
	}
	if !approx(lk.Point.SD2, 5.4, 1e-12) {
		t.Errorf("expected SD2 5.4, got %v", lk.Point.SD2)
	}
	if lk.Point.AgeDays != 45 {
		t.Errorf("expected age 45, got %d", lk.Point.AgeDays)
	}
	if lk.Point.SD4 == nil || !approx(*lk.Point.SD4, 7.0, 1e-12) {
		t.Errorf("expected SD4 7.0, got %v", lk.Point.SD4)
	}
	if lk.Point.SD4Neg != nil {
		t.Errorf("expected SD4Neg nil when one side is missing, got %v", *lk.Point.SD4Neg)
	}
}

func TestLookup_ClampsOutsideTable(t *testing.T) {
	rs := mustSeries(GenderMale, Weight, []ReferencePoint{refPoint(10, 3.5), refPoint(20, 3.8)})

	below := Lookup(rs, 0)
	if below.Point == nil || below.Point.AgeDays != 10 || !below.Clamped {
		t.Errorf("expected clamp to first row, got %+v", below)
	}
	above := Lookup(rs, 500)
	if above.Point == nil || above.Point.AgeDays != 20 || !above.Clamped {
		t.Errorf("expected clamp to last row, got %+v", above)
	}
}

func TestLookup_EmptySeries(t *testing.T) {
	if lk := Lookup(nil, 10); lk.Point != nil {
		t.Errorf("expected no point for nil series, got %+v", lk.Point)
	}
	rs := mustSeries(GenderMale, Weight, nil)
	if lk := Lookup(rs, 10); lk.Point != nil {
		t.Errorf("expected no point for empty series, got %+v", lk.Point)
	}
}

func TestNewReferenceSeries_SortsAndRejectsDuplicates(t *testing.T) {
	rs, err := NewReferenceSeries(GenderMale, Weight, []ReferencePoint{refPoint(60, 5), refPoint(0, 3), refPoint(30, 4)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, want := range []int{0, 30, 60} {
		if rs.Points[i].AgeDays != want {
			t.Errorf("index %d: expected age %d, got %d", i, want, rs.Points[i].AgeDays)
		}
	}

	if _, err := NewReferenceSeries(GenderMale, Weight, []ReferencePoint{refPoint(30, 4), refPoint(30, 4.1)}); err == nil {
		t.Error("expected duplicate age error")
	}
	if _, err := NewReferenceSeries(GenderMale, Weight, []ReferencePoint{refPoint(-1, 4)}); err == nil {
		t.Error("expected negative age error")
	}
}
