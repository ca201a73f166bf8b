package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type healthResponse struct {
	Status      string `json:"status"`
	Database    string `json:"database"`
	Cache       string `json:"cache"`
	Environment string `json:"environment"`
}

// Health reports 503 only when the credential store is down. A missing cache
// degrades revocation but the API keeps serving.
func (h HandlerSet) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Database: "ok", Cache: "ok", Environment: h.cfg.Environment}
	status := http.StatusOK

	if err := h.store.Ping(ctx); err != nil {
		resp.Database = "error"
		resp.Status = "error"
		status = http.StatusServiceUnavailable
		h.log.Error().Err(err).Msg("credential store ping failed")
	}

	if h.cache == nil {
		resp.Cache = "disabled"
	} else if err := h.cache.Ping(ctx).Err(); err != nil {
		resp.Cache = "error"
		if resp.Status == "ok" {
			resp.Status = "degraded"
		}
		h.log.Warn().Err(err).Msg("redis ping failed")
	}

	c.JSON(status, resp)
}
