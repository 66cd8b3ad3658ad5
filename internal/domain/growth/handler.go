package growth

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/pedsclinic/growth/internal/platform/auth"
	"github.com/pedsclinic/growth/pkg/pagination"
)

const dateLayout = "2006-01-02"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Read endpoints – admin, physician, nurse
	readGroup := api.Group("", auth.RequireRole("admin", "physician", "nurse"))
	readGroup.GET("/growth/zscore", h.GetZScore)
	readGroup.POST("/growth/zscores/batch", h.BatchZScores)
	readGroup.GET("/growth/charts/:gender/:type", h.GetChartSeries)
	readGroup.GET("/patients/:id/measurements", h.ListMeasurements)
	readGroup.GET("/patients/:id/growth/percentile", h.GetPercentile)
	readGroup.GET("/patients/:id/growth/trend", h.GetTrend)
	readGroup.GET("/patients/:id/growth/velocity", h.GetVelocity)
	readGroup.GET("/patients/:id/growth/projection", h.GetProjection)
	readGroup.GET("/patients/:id/growth/compare", h.Compare)
	readGroup.GET("/patients/:id/growth/population", h.ComparePopulation)
	readGroup.GET("/patients/:id/growth/chart", h.GetPatientChart)
	readGroup.GET("/measurements/:id", h.GetMeasurement)

	// Write endpoints – admin, physician, nurse
	writeGroup := api.Group("", auth.RequireRole("admin", "physician", "nurse"))
	writeGroup.POST("/patients/:id/measurements", h.RecordMeasurement)
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrPatientNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	case errors.Is(err, ErrMeasurementNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "measurement not found")
	case errors.Is(err, ErrInvalidMeasurement):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func patientID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func measurementType(raw string) (MeasurementType, error) {
	if raw == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, "type is required")
	}
	t, err := ParseMeasurementType(raw)
	if err != nil {
		return "", echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return t, nil
}

func dateRange(c echo.Context) (DateRange, error) {
	var rng DateRange
	if v := c.QueryParam("start"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return rng, echo.NewHTTPError(http.StatusBadRequest, "invalid start date")
		}
		rng.Start = &t
	}
	if v := c.QueryParam("end"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			return rng, echo.NewHTTPError(http.StatusBadRequest, "invalid end date")
		}
		rng.End = &t
	}
	if rng.Start != nil && rng.End != nil && rng.End.Before(*rng.Start) {
		return rng, echo.NewHTTPError(http.StatusBadRequest, "end date precedes start date")
	}
	return rng, nil
}

// bindError keeps a status set below the binder, e.g. a 413 from the body
// limit, instead of reporting every bind failure as a 400.
func bindError(err error) error {
	he, ok := err.(*echo.HTTPError)
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	var inner *echo.HTTPError
	if errors.As(he.Internal, &inner) {
		return inner
	}
	return he
}

// stepDays reads step_days, which must lie within the reference age range.
func stepDays(c echo.Context) (int, error) {
	step, err := intParam(c, "step_days", 0)
	if err != nil {
		return 0, err
	}
	if step < 0 || step > MaxAgeDays {
		return 0, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("step_days must be between 0 and %d", MaxAgeDays))
	}
	return step, nil
}

func intParam(c echo.Context, name string, def int) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return n, nil
}

// -- Ad-hoc scoring --

func (h *Handler) GetZScore(c echo.Context) error {
	value, err := strconv.ParseFloat(c.QueryParam("value"), 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid value")
	}
	ageDays, err := strconv.Atoi(c.QueryParam("age_days"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid age_days")
	}
	g, err := ParseGender(c.QueryParam("gender"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t, err := measurementType(c.QueryParam("type"))
	if err != nil {
		return err
	}
	res, err := h.svc.ZScore(c.Request().Context(), value, ageDays, g, t)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, res)
}

type batchRequest struct {
	Measurements []BatchItem `json:"measurements"`
}

func (h *Handler) BatchZScores(c echo.Context) error {
	var req batchRequest
	if err := c.Bind(&req); err != nil {
		return bindError(err)
	}
	if len(req.Measurements) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "measurements are required")
	}
	res, err := h.svc.ScreenBatch(c.Request().Context(), req.Measurements)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) GetChartSeries(c echo.Context) error {
	g, err := ParseGender(c.Param("gender"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	t, err := measurementType(c.Param("type"))
	if err != nil {
		return err
	}
	step, err := stepDays(c)
	if err != nil {
		return err
	}
	res, err := h.svc.ChartSeries(c.Request().Context(), g, t, step)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, res)
}

// -- Measurements --

func (h *Handler) RecordMeasurement(c echo.Context) error {
	id, err := patientID(c)
	if err != nil {
		return err
	}
	var body struct {
		Date  string  `json:"date"`
		Type  string  `json:"type"`
		Value float64 `json:"value"`
	}
	if err := c.Bind(&body); err != nil {
		return bindError(err)
	}
	t, err := measurementType(body.Type)
	if err != nil {
		return err
	}
	date, err := time.Parse(dateLayout, body.Date)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date")
	}
	m := &Measurement{PatientID: id, Date: date, Type: t, Value: body.Value}
	if err := h.svc.RecordMeasurement(c.Request().Context(), m); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) GetMeasurement(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	m, err := h.svc.GetMeasurement(c.Request().Context(), id)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) ListMeasurements(c echo.Context) error {
	id, err := patientID(c)
	if err != nil {
		return err
	}
	var filter *MeasurementType
	if raw := c.QueryParam("type"); raw != "" {
		t, err := measurementType(raw)
		if err != nil {
			return err
		}
		filter = &t
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListMeasurements(c.Request().Context(), id, filter, pg.Limit, pg.Offset)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// -- Patient growth views --

func (h *Handler) GetPercentile(c echo.Context) error {
	id, err := patientID(c)
	if err != nil {
		return err
	}
	t, err := measurementType(c.QueryParam("type"))
	if err != nil {
		return err
	}
	res, err := h.svc.Percentile(c.Request().Context(), id, t)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) GetTrend(c echo.Context) error {
	id, err := patientID(c)
	if err != nil {
		return err
	}
	t, err := measurementType(c.QueryParam("type"))
	if err != nil {
		return err
	}
	rng, err := dateRange(c)
	if err != nil {
		return err
	}
	res, err := h.svc.Trend(c.Request().Context(), id, t, rng)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) GetVelocity(c echo.Context) error {
	id, err := patientID(c)
	if err != nil {
		return err
	}
	t, err := measurementType(c.QueryParam("type"))
	if err != nil {
		return err
	}
	rng, err := dateRange(c)
	if err != nil {
		return err
	}
	v, err := h.svc.Velocity(c.Request().Context(), id, t, rng)
	if err != nil {
		return mapError(err)
	}
	if v == nil {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":  StatusInsufficientData,
			"message": "At least two measurements on different dates are required",
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":   StatusOK,
		"velocity": v,
	})
}

func (h *Handler) GetProjection(c echo.Context) error {
	id, err := patientID(c)
	if err != nil {
		return err
	}
	t, err := measurementType(c.QueryParam("type"))
	if err != nil {
		return err
	}
	months, err := intParam(c, "months", 6)
	if err != nil {
		return err
	}
	res, err := h.svc.Projection(c.Request().Context(), id, t, months)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) Compare(c echo.Context) error {
	id, err := patientID(c)
	if err != nil {
		return err
	}
	req := ComparisonRequest{Mode: c.QueryParam("mode")}
	if req.Mode == ComparePercentile || req.Mode == CompareVelocity {
		if req.Type, err = measurementType(c.QueryParam("type")); err != nil {
			return err
		}
	}
	if v := c.QueryParam("reference_age_months"); v != "" {
		if req.ReferenceAgeMonths, err = strconv.ParseFloat(v, 64); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid reference_age_months")
		}
	}
	res, err := h.svc.Compare(c.Request().Context(), id, req)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) ComparePopulation(c echo.Context) error {
	id, err := patientID(c)
	if err != nil {
		return err
	}
	t, err := measurementType(c.QueryParam("type"))
	if err != nil {
		return err
	}
	res, err := h.svc.ComparePopulation(c.Request().Context(), id, t)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) GetPatientChart(c echo.Context) error {
	id, err := patientID(c)
	if err != nil {
		return err
	}
	t, err := measurementType(c.QueryParam("type"))
	if err != nil {
		return err
	}
	step, err := stepDays(c)
	if err != nil {
		return err
	}
	res, err := h.svc.Chart(c.Request().Context(), id, t, step)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, res)
}
