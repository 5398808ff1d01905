package hardware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/latchwork/latchd/internal/access"
	"github.com/latchwork/latchd/internal/metrics"
	log "github.com/sirupsen/logrus"
)

// AuthorizeHandler serves the endpoint polled by lock hardware.
type AuthorizeHandler struct {
	engine *access.Engine
}

// NewAuthorizeHandler constructs an AuthorizeHandler.
func NewAuthorizeHandler(engine *access.Engine) *AuthorizeHandler {
	return &AuthorizeHandler{engine: engine}
}

// Authorize handles GET /auth with query params uuid (card identifier),
// dev (device chip id), and status (requested lock engagement, 0 or 1).
//
// The response is always HTTP 200: embedded clients parse the body, not
// status codes. Denials are communicated in the JSON payload.
func (h *AuthorizeHandler) Authorize(c *gin.Context) {
	start := time.Now()

	cardUUID := strings.TrimSpace(c.Query("uuid"))
	chipID := strings.TrimSpace(c.Query("dev"))
	wantLocked := strings.TrimSpace(c.Query("status")) == "1"

	decision := h.engine.Authorize(c.Request.Context(), cardUUID, chipID, wantLocked)

	metrics.ObserveAuthorize(decision.Message, start)
	log.WithFields(log.Fields{
		"uuid":   cardUUID,
		"dev":    chipID,
		"locked": wantLocked,
		"status": decision.Status,
	}).Info(decision.Message)

	c.JSON(http.StatusOK, decision)
}

// Register mounts the hardware routes on the engine.
func Register(r *gin.Engine, engine *access.Engine) {
	handler := NewAuthorizeHandler(engine)
	r.GET("/auth", handler.Authorize)
}
