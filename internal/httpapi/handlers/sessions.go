package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kiroku-app/kiroku/internal/common"
	"github.com/kiroku-app/kiroku/internal/journal"
	"go.uber.org/zap"
)

type startSessionReq struct {
	UserID           string `json:"user_id" binding:"required"`
	UserName         string `json:"user_name"`
	Week             int    `json:"week" binding:"required"`
	PriorInfo        string `json:"prior_info"`
	ConversationMode string `json:"conversation_mode"`
	SessionLength    string `json:"session_length"`
}

func (h *Handler) StartSession(c *gin.Context) {
	var req startSessionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "user_id and week required")
		return
	}

	res, err := h.Svc.StartSession(c.Request.Context(), journal.StartParams{
		UserID:           req.UserID,
		UserName:         req.UserName,
		Week:             req.Week,
		PriorInfo:        req.PriorInfo,
		ConversationMode: req.ConversationMode,
		SessionLength:    req.SessionLength,
	})
	if err != nil {
		if errors.Is(err, journal.ErrUnknownWeek) {
			common.Fail(c, http.StatusBadRequest, 10010,
				fmt.Sprintf("unknown week %d, valid weeks: %v", req.Week, journal.Weeks()))
			return
		}
		h.Logger.Error("start session failed",
			zap.String("user_id", req.UserID),
			zap.Int("week", req.Week),
			zap.Error(err))
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to start session")
		return
	}

	common.OK(c, res)
}

type sessionIDReq struct {
	SessionID string `json:"session_id" binding:"required"`
}

func (h *Handler) EndSession(c *gin.Context) {
	var req sessionIDReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "session_id required")
		return
	}

	res, sess, err := h.Svc.EndSession(c.Request.Context(), req.SessionID)
	if err != nil {
		if errors.Is(err, journal.ErrSessionNotFound) {
			common.Fail(c, http.StatusNotFound, 40401, "session not found")
			return
		}
		h.Logger.Error("end session failed",
			zap.String("session_id", req.SessionID),
			zap.Error(err))
		common.Fail(c, http.StatusBadGateway, 50201, "failed to finish session")
		return
	}

	common.OK(c, gin.H{
		"summary":   res.Summary,
		"article":   res.Article,
		"image_url": res.ImageURL,
		"week":      sess.Week,
		"theme":     sess.Theme,
	})
}

func (h *Handler) CheckSession(c *gin.Context) {
	userID := c.Param("userId")
	week, err := strconv.Atoi(c.Param("week"))
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10002, "invalid week")
		return
	}

	existing, err := h.Svc.CheckExisting(c.Request.Context(), userID, week)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to check session")
		return
	}
	if existing == nil {
		common.OK(c, gin.H{"exists": false})
		return
	}
	common.OK(c, gin.H{"exists": true, "session": existing})
}

func (h *Handler) ResumeSession(c *gin.Context) {
	var req sessionIDReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "session_id required")
		return
	}

	view, err := h.Svc.Resume(c.Request.Context(), req.SessionID)
	if err != nil {
		if errors.Is(err, journal.ErrSessionNotFound) {
			common.Fail(c, http.StatusNotFound, 40401, "session not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to resume session")
		return
	}

	common.OK(c, view)
}

func (h *Handler) SaveSession(c *gin.Context) {
	var req sessionIDReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "session_id required")
		return
	}

	savedAt, err := h.Svc.ManualSave(c.Request.Context(), req.SessionID)
	if err != nil {
		if errors.Is(err, journal.ErrSessionNotFound) {
			common.Fail(c, http.StatusNotFound, 40401, "session not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to save session")
		return
	}

	common.OK(c, gin.H{"success": true, "last_saved_at": savedAt})
}

func (h *Handler) ListSessions(c *gin.Context) {
	userID := c.Param("userId")
	items, err := h.Svc.ListSessions(c.Request.Context(), userID)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to list sessions")
		return
	}
	common.OK(c, gin.H{"sessions": items})
}

func (h *Handler) GetReport(c *gin.Context) {
	userID := c.Param("userId")
	week, err := strconv.Atoi(c.Param("week"))
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10002, "invalid week")
		return
	}

	report, err := h.Svc.Report(c.Request.Context(), userID, week)
	if err != nil {
		if errors.Is(err, journal.ErrSessionNotFound) {
			common.Fail(c, http.StatusNotFound, 40402, "report not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to load report")
		return
	}

	common.OK(c, report)
}
