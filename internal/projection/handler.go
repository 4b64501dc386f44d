package projection

import (
	"context"
	"errors"
	"net/http"
	"time"

	httperr "github.com/aevon-lab/orderpulse/internal/core/errors"
	"github.com/aevon-lab/orderpulse/internal/pipeline"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers run control and summary routes on the given router.
func (s *Service) RegisterRoutes(r gin.IRouter) {
	r.GET("/v1/runs/latest", s.HandleLatestRun)
	r.POST("/v1/tenants/:tenant_id/runs", s.HandleRunTenant)
	r.GET("/v1/tenants/:tenant_id/summaries/overall", s.HandleQueryOverall)
}

// HandleLatestRun handles GET /v1/runs/latest
func (s *Service) HandleLatestRun(c *gin.Context) {
	report, ok := s.runner.LastReport()
	if !ok {
		c.JSON(http.StatusNotFound, httperr.ErrorResponse{
			ErrorType: httperr.HttpNotFoundError,
			Message:   "No run has completed yet",
		})
		return
	}
	c.JSON(http.StatusOK, report)
}

// HandleRunTenant handles POST /v1/tenants/:tenant_id/runs
// The run outlives a disconnected client.
func (s *Service) HandleRunTenant(c *gin.Context) {
	tenantID := c.Param("tenant_id")

	res, err := s.runner.RunTenant(context.WithoutCancel(c.Request.Context()), tenantID)
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrUnknownTenant):
			c.JSON(http.StatusNotFound, httperr.ErrorResponse{
				ErrorType: httperr.HttpTenantNotFoundError,
				Message:   "Unknown tenant",
				Details:   tenantID,
			})
		case errors.Is(err, pipeline.ErrClosed):
			c.JSON(http.StatusConflict, httperr.ErrorResponse{
				ErrorType: httperr.HttpShuttingDownError,
				Message:   "Service is shutting down",
			})
		default:
			c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
				ErrorType: httperr.HttpInternalError,
				Message:   "Failed to run tenant",
				Details:   err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, res)
}

// HandleQueryOverall handles GET /v1/tenants/:tenant_id/summaries/overall
// Query parameters: start, end (YYYY-MM-DD), granularity
func (s *Service) HandleQueryOverall(c *gin.Context) {
	var query struct {
		Start       time.Time `form:"start" binding:"required" time_format:"2006-01-02" time_utc:"1"`
		End         time.Time `form:"end" binding:"required" time_format:"2006-01-02" time_utc:"1"`
		Granularity string    `form:"granularity"`
	}

	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
			ErrorType: httperr.HttpInvalidQueryError,
			Message:   "Invalid query parameters",
			Details:   err.Error(),
		})
		return
	}

	resp, err := s.QueryOverall(c.Request.Context(), OverallQueryRequest{
		TenantID:    c.Param("tenant_id"),
		Start:       query.Start,
		End:         query.End,
		Granularity: query.Granularity,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidQuery):
			c.JSON(http.StatusBadRequest, httperr.ErrorResponse{
				ErrorType: httperr.HttpInvalidQueryError,
				Message:   "Invalid summary query",
				Details:   err.Error(),
			})
		case errors.Is(err, pipeline.ErrUnknownTenant):
			c.JSON(http.StatusNotFound, httperr.ErrorResponse{
				ErrorType: httperr.HttpTenantNotFoundError,
				Message:   "Unknown tenant",
				Details:   c.Param("tenant_id"),
			})
		case errors.Is(err, ErrTenantUnavailable):
			c.JSON(http.StatusServiceUnavailable, httperr.ErrorResponse{
				ErrorType: httperr.HttpInternalError,
				Message:   "Tenant database unavailable",
				Details:   c.Param("tenant_id"),
			})
		default:
			c.JSON(http.StatusInternalServerError, httperr.ErrorResponse{
				ErrorType: httperr.HttpInternalError,
				Message:   "Failed to query summaries",
				Details:   err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}
