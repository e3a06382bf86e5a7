package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinWalk/internal/domain/models"
	"FinWalk/internal/domain/service"
	"FinWalk/internal/service/ratelimit"
	"FinWalk/internal/services/stats"
	"FinWalk/internal/services/walkforward"
	"FinWalk/internal/usecase"
)

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(t *testing.T, rl *ratelimit.Limiter) (*echo.Echo, *WalkForwardEchoHandler) {
	t.Helper()
	sim := service.SignalSimulatorFunc(func(_ context.Context, segment models.Series, p models.ParameterPair, _ models.Direction, _ models.Frequency) (float64, error) {
		return segment.At(0).Value/100 - float64(p.Slow-p.Fast)/100, nil
	})
	tt, err := stats.NewTTest(stats.MethodWelch)
	require.NoError(t, err)

	engine := walkforward.NewEngine(sim, tt)
	uc := usecase.NewWalkForwardUseCase(nil, engine, walkforward.RunParams{
		WindowLen:      20,
		OOSLen:         5,
		Candidates:     []int{10, 20, 30},
		Count:          3,
		Direction:      models.DirectionLong,
		Frequency:      "1d",
		HigherIsBetter: true,
		Threshold:      0.05,
		Alternative:    models.AltOutSampleGreater,
	}, 1000)

	h := NewWalkForwardEchoHandler(nil, uc, rl, 5*time.Second)
	e := echo.New()
	h.RegisterRoutes(e)
	return e, h
}

func runBody(n int) []byte {
	return runBodyWith(n, nil)
}

func runBodyWith(n int, extra map[string]interface{}) []byte {
	points := make([]map[string]interface{}, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range points {
		points[i] = map[string]interface{}{"time": base.AddDate(0, 0, i).Format("2006-01-02"), "value": 100 + i}
	}
	body := map[string]interface{}{"points": points, "include_scores": true}
	for k, v := range extra {
		body[k] = v
	}
	b, _ := json.Marshal(body)
	return b
}

func do(e *echo.Echo, method, target string, body []byte) (*httptest.ResponseRecorder, envelope) {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var env envelope
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestRunInlinePoints(t *testing.T) {
	e, _ := newTestServer(t, nil)
	rec, env := do(e, http.MethodPost, "/api/walkforward", runBody(40))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var rep models.RunReport
	require.NoError(t, json.Unmarshal(env.Data, &rep))
	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, usecase.InlineSymbol, rep.Symbol)
	assert.Equal(t, 3, rep.GridSize)
	require.Len(t, rep.Splits, 3)
	assert.Equal(t, &models.ParameterPair{Fast: 10, Slow: 20}, rep.Splits[0].Selected)
	assert.Len(t, rep.Scores, 9)
	require.NotNil(t, rep.Comparison)
	assert.Equal(t, 3, rep.Comparison.N)
	assert.Equal(t, "out_sample_greater", rep.Comparison.Alternative)
}

func TestRunValidationErrors(t *testing.T) {
	e, _ := newTestServer(t, nil)

	rec, _ := do(e, http.MethodPost, "/api/walkforward", []byte(`{}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(e, http.MethodPost, "/api/walkforward", []byte(`{"symbol":"BTCUSDT","direction":"up"}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(e, http.MethodPost, "/api/walkforward", []byte(`{"symbol":"BTCUSDT","splits":3,"stride":2}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunEngineErrors(t *testing.T) {
	e, _ := newTestServer(t, nil)

	rec, env := do(e, http.MethodPost, "/api/walkforward", runBody(10))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var errs []map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &errs))
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_INSUFFICIENT_DATA", errs[0]["code"])

	rec, _ = do(e, http.MethodPost, "/api/walkforward", []byte(`{"symbol":"BTCUSDT"}`))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRunTooFewSplits(t *testing.T) {
	e, _ := newTestServer(t, nil)

	cases := map[string]struct {
		extra map[string]interface{}
		code  string
		field string
	}{
		"one split":         {extra: map[string]interface{}{"splits": 1}, code: "ERR_INVALID_CONFIG", field: "splits"},
		"one window":        {extra: map[string]interface{}{"stride": 25}, code: "ERR_INSUFFICIENT_DATA"},
		"default threshold": {extra: map[string]interface{}{"significance_threshold": 0}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rec, env := do(e, http.MethodPost, "/api/walkforward", runBodyWith(40, tc.extra))
			if tc.code == "" {
				assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
				return
			}
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			var errs []map[string]interface{}
			require.NoError(t, json.Unmarshal(env.Data, &errs))
			require.Len(t, errs, 1)
			assert.Equal(t, tc.code, errs[0]["code"])
			if tc.field != "" {
				assert.Equal(t, tc.field, errs[0]["field"])
			}
		})
	}
}

func TestRunRateLimited(t *testing.T) {
	e, _ := newTestServer(t, ratelimit.New(0.001, 1))

	rec, _ := do(e, http.MethodPost, "/api/walkforward", runBody(40))
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = do(e, http.MethodPost, "/api/walkforward", runBody(40))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestGrid(t *testing.T) {
	e, _ := newTestServer(t, nil)

	rec, env := do(e, http.MethodGet, "/api/walkforward/grid?candidates=30,10,20&splits=2", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderCacheControl))

	var preview models.GridPreview
	require.NoError(t, json.Unmarshal(env.Data, &preview))
	assert.Equal(t, []int{10, 20, 30}, preview.Candidates)
	assert.Equal(t, 3, preview.Count)
	assert.Equal(t, 6, preview.Evaluations)
	assert.True(t, preview.WithinLimit)

	rec, _ = do(e, http.MethodGet, "/api/walkforward/grid?candidates=10", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	e, h := newTestServer(t, nil)

	rec, _ := do(e, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	h.AddHealthCheck("clickhouse", func(context.Context) error { return nil })
	h.AddHealthCheck("redis", func(context.Context) error { return errors.New("dial tcp: refused") })
	rec, env := do(e, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var deps map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &deps))
	assert.Equal(t, "ok", deps["clickhouse"])
	assert.Equal(t, "dial tcp: refused", deps["redis"])
}

func TestToAppError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("x: %w", usecase.ErrNoData), http.StatusNotFound, "ERR_NOT_FOUND"},
		{usecase.ErrNoStore, http.StatusServiceUnavailable, "ERR_UNAVAILABLE"},
		{fmt.Errorf("price store: %w", gobreaker.ErrOpenState), http.StatusServiceUnavailable, "ERR_UNAVAILABLE"},
		{context.DeadlineExceeded, http.StatusGatewayTimeout, "ERR_TIMEOUT"},
		{&walkforward.GridTooLargeError{}, http.StatusBadRequest, "ERR_GRID_TOO_LARGE"},
		{&walkforward.EmptyGridError{}, http.StatusBadRequest, "ERR_EMPTY_GRID"},
		{&walkforward.InsufficientDataError{Have: 1, Need: 2, Unit: "aligned splits"}, http.StatusBadRequest, "ERR_INSUFFICIENT_DATA"},
		{&walkforward.NoValidSelectionError{}, http.StatusUnprocessableEntity, "ERR_NO_VALID_SELECTION"},
		{&walkforward.MisalignedInputError{}, http.StatusUnprocessableEntity, "ERR_MISALIGNED_INPUT"},
		{errors.New("boom"), http.StatusInternalServerError, "ERR_INTERNAL"},
	}
	for _, tc := range cases {
		got := toAppError(tc.err)
		assert.Equal(t, tc.status, got.Status, tc.err.Error())
		assert.Equal(t, tc.code, got.Code, tc.err.Error())
	}

	got := toAppError(&walkforward.InvalidConfigError{Field: "oos_len", Detail: "too long"})
	assert.Equal(t, "ERR_INVALID_CONFIG", got.Code)
	assert.Equal(t, "oos_len", got.Field)
}
