package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/pianocrm-backend/internal/platform/logger"
	"github.com/yungbote/pianocrm-backend/internal/repos"
	"github.com/yungbote/pianocrm-backend/internal/services"
)

type CustomerHandler struct {
	log       *logger.Logger
	requalify *services.RequalifyService
	batch     *services.BatchService
	profiles  repos.ProfileRepo
}

func NewCustomerHandler(
	baseLog *logger.Logger,
	requalify *services.RequalifyService,
	batch *services.BatchService,
	profiles repos.ProfileRepo,
) *CustomerHandler {
	return &CustomerHandler{
		log:       baseLog.With("handler", "CustomerHandler"),
		requalify: requalify,
		batch:     batch,
		profiles:  profiles,
	}
}

func (ch *CustomerHandler) Requalify(c *gin.Context) {
	customerID, ok := customerIDParam(c)
	if !ok {
		return
	}

	result, err := ch.requalify.Run(c.Request.Context(), customerID)
	if err != nil {
		var notFound *services.ProfileNotFoundError
		var external *services.ExternalServiceError
		switch {
		case errors.As(err, &notFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.As(err, &external):
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	if result.Skipped {
		c.JSON(http.StatusOK, gin.H{"status": "skipped", "reason": "no new messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "merged", "result": result})
}

func (ch *CustomerHandler) GetProfile(c *gin.Context) {
	customerID, ok := customerIDParam(c)
	if !ok {
		return
	}

	profile, err := ch.profiles.GetByCustomerID(c.Request.Context(), nil, customerID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if profile == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": profile})
}

// RunBatch kicks off bulk requalification in the background; batches can
// run for minutes and must not hold an HTTP request open.
func (ch *CustomerHandler) RunBatch(c *gin.Context) {
	go func() {
		if _, err := ch.batch.Run(context.Background()); err != nil {
			ch.log.Error("Background batch run failed", "error", err)
		}
	}()
	c.JSON(http.StatusAccepted, gin.H{"status": "started"})
}

func customerIDParam(c *gin.Context) (int64, bool) {
	raw := c.Param("id")
	customerID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || customerID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid customer id"})
		return 0, false
	}
	return customerID, true
}
