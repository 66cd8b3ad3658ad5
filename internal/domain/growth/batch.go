package growth

import "context"

// BatchItem is an ad-hoc measurement, e.g. one child in a screening session.
type BatchItem struct {
	ID      string          `json:"id,omitempty"`
	Value   float64         `json:"value"`
	AgeDays int             `json:"age_days"`
	Gender  Gender          `json:"gender"`
	Type    MeasurementType `json:"type"`
}

type BatchItemResult struct {
	ID      string          `json:"id,omitempty"`
	Value   float64         `json:"value"`
	AgeDays int             `json:"age_days"`
	Gender  Gender          `json:"gender"`
	Type    MeasurementType `json:"type"`
	Valid   bool            `json:"valid"`
	Result  ZScoreResult    `json:"result"`
}

// BatchStatistics aggregates only the items that produced a Z-score.
type BatchStatistics struct {
	Total             int            `json:"total"`
	Valid             int            `json:"valid"`
	Invalid           int            `json:"invalid"`
	AverageZScore     *float64       `json:"average_z_score"`
	AveragePercentile *float64       `json:"average_percentile"`
	Classifications   map[string]int `json:"classifications"`
}

type BatchResult struct {
	Results    []BatchItemResult `json:"results"`
	Statistics BatchStatistics   `json:"statistics"`
}

// ZScoresBatch scores every item independently; an invalid item never
// affects the others. Results keep the input order.
func (e *Engine) ZScoresBatch(ctx context.Context, items []BatchItem) (BatchResult, error) {
	out := BatchResult{Results: make([]BatchItemResult, 0, len(items))}
	for _, it := range items {
		res, err := e.ZScore(ctx, it.Value, it.AgeDays, it.Gender, it.Type)
		if err != nil {
			return BatchResult{}, err
		}
		out.Results = append(out.Results, BatchItemResult{
			ID:      it.ID,
			Value:   it.Value,
			AgeDays: it.AgeDays,
			Gender:  it.Gender,
			Type:    it.Type,
			Valid:   res.Valid(),
			Result:  res,
		})
	}
	out.Statistics = Summarize(out.Results)
	return out, nil
}

// Summarize computes batch statistics over the valid results.
func Summarize(results []BatchItemResult) BatchStatistics {
	st := BatchStatistics{Total: len(results), Classifications: map[string]int{}}
	var zSum, pSum float64
	for _, r := range results {
		if !r.Result.Valid() {
			st.Invalid++
			continue
		}
		st.Valid++
		zSum += *r.Result.ZScore
		if r.Result.Percentile != nil {
			pSum += *r.Result.Percentile
		}
		st.Classifications[r.Result.Classification]++
	}
	if st.Valid > 0 {
		st.AverageZScore = ptrFloat(roundTo(zSum/float64(st.Valid), 2))
		st.AveragePercentile = ptrFloat(roundTo(pSum/float64(st.Valid), 2))
	}
	return st
}
