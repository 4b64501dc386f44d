package projection

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aevon-lab/orderpulse/internal/pipeline"
	"github.com/aevon-lab/orderpulse/internal/summary"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, svc *Service, method, url string) *httptest.ResponseRecorder {
	t.Helper()
	r := gin.New()
	svc.RegisterRoutes(r)
	req := httptest.NewRequest(method, url, nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestService_HandleQueryOverall_StatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		url            string
		expectedStatus int
		configure      func(reader *mockReader)
	}{
		{
			name:           "missing end returns 400",
			url:            "/v1/tenants/t1/summaries/overall?start=2026-03-01",
			expectedStatus: http.StatusBadRequest,
			configure:      func(_ *mockReader) {},
		},
		{
			name:           "malformed date returns 400",
			url:            "/v1/tenants/t1/summaries/overall?start=03/01/2026&end=2026-03-02",
			expectedStatus: http.StatusBadRequest,
			configure:      func(_ *mockReader) {},
		},
		{
			name:           "inverted range returns 400",
			url:            "/v1/tenants/t1/summaries/overall?start=2026-03-02&end=2026-03-01",
			expectedStatus: http.StatusBadRequest,
			configure:      func(_ *mockReader) {},
		},
		{
			name:           "unknown tenant returns 404",
			url:            "/v1/tenants/nope/summaries/overall?start=2026-03-01&end=2026-03-01",
			expectedStatus: http.StatusNotFound,
			configure:      func(_ *mockReader) {},
		},
		{
			name:           "offline tenant returns 503",
			url:            "/v1/tenants/offline/summaries/overall?start=2026-03-01&end=2026-03-01",
			expectedStatus: http.StatusServiceUnavailable,
			configure:      func(_ *mockReader) {},
		},
		{
			name:           "store error returns 500",
			url:            "/v1/tenants/t1/summaries/overall?start=2026-03-01&end=2026-03-01",
			expectedStatus: http.StatusInternalServerError,
			configure: func(reader *mockReader) {
				reader.On("OverallRows", mock.Anything, mock.Anything).Return(nil, errors.New("db failure")).Once()
			},
		},
		{
			name:           "rows returns 200",
			url:            "/v1/tenants/t1/summaries/overall?start=2026-03-01&end=2026-03-01&granularity=total",
			expectedStatus: http.StatusOK,
			configure: func(reader *mockReader) {
				reader.On("OverallRows", mock.Anything, mock.Anything).
					Return([]summary.OverallRow{overall(day(2026, 3, 1), 10, 1)}, nil).Once()
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			reader := &mockReader{}
			tc.configure(reader)
			svc := NewService(&mockRunner{}, map[string]SummaryReader{"t1": reader, "offline": nil})

			resp := serve(t, svc, http.MethodGet, tc.url)
			if resp.Code != tc.expectedStatus {
				t.Logf("unexpected response body: %s", resp.Body.String())
			}
			require.Equal(t, tc.expectedStatus, resp.Code)
			reader.AssertExpectations(t)
		})
	}
}

func TestService_HandleQueryOverall_Body(t *testing.T) {
	gin.SetMode(gin.TestMode)

	reader := &mockReader{}
	reader.On("OverallRows", mock.Anything, mock.Anything).
		Return([]summary.OverallRow{overall(day(2026, 3, 1), 10, 1)}, nil).Once()
	svc := NewService(&mockRunner{}, map[string]SummaryReader{"t1": reader})

	resp := serve(t, svc, http.MethodGet, "/v1/tenants/t1/summaries/overall?start=2026-03-01&end=2026-03-01")
	require.Equal(t, http.StatusOK, resp.Code)

	var body struct {
		TenantID    string                   `json:"tenant_id"`
		Granularity string                   `json:"granularity"`
		Rows        []map[string]interface{} `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Equal(t, "t1", body.TenantID)
	require.Equal(t, GranularityDay, body.Granularity)
	require.Len(t, body.Rows, 1)
	require.Equal(t, "2026-03-01", body.Rows[0]["date"])
	require.Equal(t, "10", body.Rows[0]["gross_sales"])
}

func TestService_HandleRunTenant_StatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		tenant         string
		result         pipeline.TenantResult
		err            error
		expectedStatus int
	}{
		{
			name:           "run returns 200",
			tenant:         "t1",
			result:         pipeline.TenantResult{Tenant: "t1", Status: pipeline.StatusSucceeded},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "unknown tenant returns 404",
			tenant:         "nope",
			err:            pipeline.ErrUnknownTenant,
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "closed orchestrator returns 409",
			tenant:         "t1",
			err:            pipeline.ErrClosed,
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "other error returns 500",
			tenant:         "t1",
			err:            errors.New("boom"),
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			runner := &mockRunner{}
			runner.On("RunTenant", mock.Anything, tc.tenant).Return(tc.result, tc.err).Once()
			svc := NewService(runner, nil)

			resp := serve(t, svc, http.MethodPost, "/v1/tenants/"+tc.tenant+"/runs")
			require.Equal(t, tc.expectedStatus, resp.Code)
			runner.AssertExpectations(t)
		})
	}
}

func TestService_HandleLatestRun(t *testing.T) {
	gin.SetMode(gin.TestMode)

	runner := &mockRunner{}
	runner.On("LastReport").Return(pipeline.RunReport{}, false).Once()
	svc := NewService(runner, nil)

	resp := serve(t, svc, http.MethodGet, "/v1/runs/latest")
	require.Equal(t, http.StatusNotFound, resp.Code)

	report := pipeline.RunReport{
		RunID:     "run-1",
		StartedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Succeeded: 2,
	}
	runner.On("LastReport").Return(report, true).Once()
	resp = serve(t, svc, http.MethodGet, "/v1/runs/latest")
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), `"run-1"`)
	runner.AssertExpectations(t)
}
