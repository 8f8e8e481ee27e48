package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kiroku-app/kiroku/internal/common"
	"github.com/kiroku-app/kiroku/internal/journal"
)

func (h *Handler) FortuneTypes(c *gin.Context) {
	common.OK(c, gin.H{"fortune_types": journal.FortuneTypes()})
}

type setFortuneReq struct {
	SessionID    string   `json:"session_id" binding:"required"`
	FortuneTypes []string `json:"fortune_types" binding:"required"`
}

func (h *Handler) SetFortune(c *gin.Context) {
	var req setFortuneReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "session_id and fortune_types required")
		return
	}

	selected, err := h.Svc.SetFortune(c.Request.Context(), req.SessionID, req.FortuneTypes)
	if err != nil {
		if errors.Is(err, journal.ErrSessionNotFound) {
			common.Fail(c, http.StatusNotFound, 40401, "session not found")
			return
		}
		if errors.Is(err, journal.ErrUnknownFortuneType) {
			common.Fail(c, http.StatusBadRequest, 10011, "unknown fortune type")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to set fortune")
		return
	}

	common.OK(c, gin.H{"success": true, "selected_fortunes": selected})
}

func (h *Handler) OmakaseFortune(c *gin.Context) {
	var req sessionIDReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "session_id required")
		return
	}

	if err := h.Svc.OmakaseFortune(c.Request.Context(), req.SessionID); err != nil {
		if errors.Is(err, journal.ErrSessionNotFound) {
			common.Fail(c, http.StatusNotFound, 40401, "session not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to set omakase mode")
		return
	}

	common.OK(c, gin.H{"success": true, "mode": "omakase"})
}
