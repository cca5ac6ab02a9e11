package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/wes-io-live/notify-service/internal/domain"
	"github.com/weiawesome/wes-io-live/notify-service/internal/service"
	"github.com/weiawesome/wes-io-live/pkg/log"
	"github.com/weiawesome/wes-io-live/pkg/middleware"
	"github.com/weiawesome/wes-io-live/pkg/notify"
	"github.com/weiawesome/wes-io-live/pkg/response"
)

// Handler handles HTTP requests for the notify gateway.
type Handler struct {
	notifyService service.NotifyService
}

// NewHandler creates a new HTTP handler.
func NewHandler(notifyService service.NotifyService) *Handler {
	return &Handler{notifyService: notifyService}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api/v1", middleware.Credentials())
	{
		api.POST("/notify-join", h.NotifyJoin)
		api.POST("/rooms/:room_id/broadcast-join", h.BroadcastJoin)
	}
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// NotifyJoin announces a new listener in the room's discussion thread.
func (h *Handler) NotifyJoin(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req notify.NotifyJoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind notify-join request")
		c.Set(log.FieldOutcome, string(domain.OutcomeFailure)+":"+string(domain.FailureInput))
		response.BadRequest(c, "invalid request body")
		return
	}

	outcome := h.notifyService.NotifyJoin(ctx, &req, domain.Credentials{
		Token:   middleware.GetToken(c),
		Referer: middleware.GetReferer(c),
	})

	c.Set(log.FieldActorKind, string(outcome.Actor.Kind))
	if id := outcome.Actor.ID(); id != "" {
		c.Set(log.FieldUserID, id)
	}
	c.Set(log.FieldOutcome, outcome.Label())

	writeOutcome(c, outcome)
}

// BroadcastJoin sends the join frame to every peer in the room.
func (h *Handler) BroadcastJoin(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var body struct {
		Message string `json:"message"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			response.BadRequest(c, "invalid request body")
			return
		}
	}

	if err := h.notifyService.BroadcastJoin(ctx, c.Param("room_id"), body.Message); err != nil {
		l.Error().Err(err).Msg("failed to broadcast join")
		response.InternalError(c, "BroadcastFailed", err.Error())
		return
	}

	response.Accepted(c)
}

func writeOutcome(c *gin.Context, o domain.Outcome) {
	switch o.Kind {
	case domain.OutcomeSuccess:
		response.Success(c, o.ThreadID, o.PostID)
	case domain.OutcomeDegraded:
		response.Degraded(c, o.Reason)
	case domain.OutcomeUnauthorized:
		response.Unauthorized(c, o.RequiredLevel)
	default:
		response.Error(c, o.HTTPStatus(), string(o.Failure), o.Reason)
	}
}
