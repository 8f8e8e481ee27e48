package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kiroku-app/kiroku/internal/common"
	"github.com/kiroku-app/kiroku/internal/journal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (h *Handler) Greeting(c *gin.Context) {
	var req sessionIDReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "session_id required")
		return
	}

	greeting, err := h.Svc.Greeting(c.Request.Context(), req.SessionID)
	if err != nil {
		if errors.Is(err, journal.ErrSessionNotFound) {
			common.Fail(c, http.StatusNotFound, 40401, "session not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to produce greeting")
		return
	}

	common.OK(c, gin.H{"message": greeting})
}

type chatReq struct {
	SessionID string `json:"session_id" binding:"required"`
	Message   string `json:"message" binding:"required"`
}

func (h *Handler) Chat(c *gin.Context) {
	var req chatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "session_id and message required")
		return
	}

	reply, err := h.Svc.SendMessage(c.Request.Context(), req.SessionID, req.Message)
	if err != nil {
		if errors.Is(err, journal.ErrSessionNotFound) {
			common.Fail(c, http.StatusNotFound, 40401, "session not found")
			return
		}
		// the user message stays in the transcript; the client may retry
		h.Logger.Error("chat turn failed",
			zap.String("session_id", req.SessionID),
			zap.Error(err))
		common.Fail(c, http.StatusBadGateway, 50201, "reply generation failed, please retry")
		return
	}

	common.OK(c, gin.H{"session_id": req.SessionID, "message": reply})
}

// ChatAsync records the user message immediately and queues reply generation.
// With an Idempotency-Key header, repeated requests return the same job.
func (h *Handler) ChatAsync(c *gin.Context) {
	var req chatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "session_id and message required")
		return
	}
	if h.Rabbit == nil {
		common.Fail(c, http.StatusServiceUnavailable, 50301, "async replies disabled")
		return
	}

	idempoKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	if len(idempoKey) > 128 {
		common.Fail(c, http.StatusBadRequest, 10003, "idempotency key too long")
		return
	}
	var idempoKeyPtr *string
	if idempoKey != "" {
		idempoKeyPtr = &idempoKey
	}

	ctx := c.Request.Context()
	sess, err := h.Store.GetSession(ctx, req.SessionID)
	if err != nil {
		if errors.Is(err, journal.ErrSessionNotFound) {
			common.Fail(c, http.StatusNotFound, 40401, "session not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	// Record the user message up front so the transcript is complete even if
	// the worker lags. The same dedupe as the synchronous path applies.
	last, err := h.Store.LastMessage(ctx, sess.SessionID)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}
	if last == nil || last.Role != journal.RoleUser || last.Content != req.Message {
		if err := h.Store.InsertMessage(ctx, &journal.Message{
			SessionID: sess.SessionID,
			Role:      journal.RoleUser,
			Content:   req.Message,
		}); err != nil {
			common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
			return
		}
	}

	jobID, err := common.NewULID()
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	j := &journal.Job{
		ID:             jobID,
		SessionID:      sess.SessionID,
		Prompt:         req.Message,
		IdempotencyKey: idempoKeyPtr,
		Status:         journal.JobQueued,
	}

	created := true
	if idempoKeyPtr == nil {
		if err := h.Store.CreateJob(ctx, j); err != nil {
			h.Logger.Error("create job failed",
				zap.String("session_id", sess.SessionID),
				zap.String("job_id", jobID),
				zap.Error(err))
			common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
			return
		}
	} else {
		j, created, err = h.Store.CreateJobOrGetExisting(ctx, j)
		if err != nil {
			h.Logger.Error("create job failed",
				zap.String("session_id", sess.SessionID),
				zap.String("idempotency_key", idempoKey),
				zap.Error(err))
			common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
			return
		}
	}

	if created {
		if err := h.Rabbit.PublishJob(ctx, j.ID); err != nil {
			h.Logger.Error("publish job failed",
				zap.String("job_id", j.ID),
				zap.Error(err))
			common.Fail(c, http.StatusInternalServerError, 50002, "enqueue failed")
			return
		}
	}

	common.OK(c, gin.H{"job_id": j.ID})
}

func (h *Handler) GetChatJob(c *gin.Context) {
	jobID := c.Param("job_id")
	if jobID == "" {
		common.Fail(c, http.StatusBadRequest, 10002, "job_id required")
		return
	}

	j, err := h.Store.GetJobByID(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40402, "job not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	common.OK(c, gin.H{
		"job": gin.H{
			"id":                j.ID,
			"session_id":        j.SessionID,
			"status":            j.Status,
			"result_message_id": j.ResultMessageID,
			"error":             j.Error,
			"created_at":        j.CreatedAt,
			"updated_at":        j.UpdatedAt,
		},
	})
}
