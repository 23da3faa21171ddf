package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"discord-giveaway-bot/internal/common/errors"
	"discord-giveaway-bot/internal/common/middleware"
	"discord-giveaway-bot/internal/common/validation"
	"discord-giveaway-bot/internal/features/giveaway/models"
	giveawayservice "discord-giveaway-bot/internal/features/giveaway/service"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// GiveawayHandler serves the read-mostly admin API.
type GiveawayHandler struct {
	service giveawayservice.GiveawayService
	logger  zerolog.Logger
}

func NewGiveawayHandler(service giveawayservice.GiveawayService, logger zerolog.Logger) *GiveawayHandler {
	return &GiveawayHandler{
		service: service,
		logger:  logger.With().Str("component", "giveaway_http").Logger(),
	}
}

func (h *GiveawayHandler) RegisterRoutes(router *gin.RouterGroup) {
	giveaways := router.Group("/giveaways")
	{
		giveaways.GET("", h.list)
		giveaways.GET("/history", h.history)
		giveaways.GET("/:id", h.getByID)
		giveaways.POST("/:id/cancel", h.cancel)
	}
}

// list returns live giveaways, optionally filtered by ?state=.
func (h *GiveawayHandler) list(c *gin.Context) {
	state := models.GiveawayState(c.Query("state"))
	switch state {
	case "", models.GiveawayStateOpen, models.GiveawayStateSelecting, models.GiveawayStateConcluded:
	default:
		middleware.SendError(c, errors.New(errors.ErrCodeValidation, "invalid state: "+string(state)), h.logger)
		return
	}

	giveaways, err := h.service.List(c.Request.Context(), state)
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{"giveaways": giveaways, "total": len(giveaways)})
}

func (h *GiveawayHandler) getByID(c *gin.Context) {
	id, ok := h.giveawayID(c)
	if !ok {
		return
	}
	giveaway, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, giveaway)
}

func (h *GiveawayHandler) cancel(c *gin.Context) {
	id, ok := h.giveawayID(c)
	if !ok {
		return
	}
	giveaway, err := h.service.Cancel(c.Request.Context(), id)
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, giveaway)
}

// history pages through concluded giveaways with ?limit= and ?offset=.
func (h *GiveawayHandler) history(c *gin.Context) {
	limit, err := queryInt(c, "limit", defaultHistoryLimit)
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}
	offset, err := queryInt(c, "offset", 0)
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}
	if limit < 1 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}

	giveaways, err := h.service.History(c.Request.Context(), limit, offset)
	if err != nil {
		middleware.SendError(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{"giveaways": giveaways, "limit": limit, "offset": offset})
}

// giveawayID reads the :id path parameter, which is an announcement message id.
func (h *GiveawayHandler) giveawayID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if err := validation.ValidateSnowflake(id); err != nil {
		middleware.SendError(c, errors.New(errors.ErrCodeValidation, "invalid giveaway id: "+err.Error()), h.logger)
		return "", false
	}
	return id, true
}

func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.New(errors.ErrCodeValidation, "invalid "+key+": "+raw)
	}
	return v, nil
}
