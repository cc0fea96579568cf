// Package api is the local HTTP facade the rendering layer talks to: session
// lists, conversation history, sends and the focus/pin/hide/transfer actions.
// It is a thin adapter over the engine; no state of its own.
package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"agent-console/internal/domain/conversation"
	"agent-console/internal/engine"
	"agent-console/internal/upload"
	console_errors "agent-console/pkg/errors"
)

type Handler struct {
	engine  *engine.Engine
	uploads *upload.Store // nil when S3 is not configured
}

func NewHandler(eng *engine.Engine, uploads *upload.Store) *Handler {
	return &Handler{engine: eng, uploads: uploads}
}

func (h *Handler) ListSessions(c *gin.Context) {
	hidden := c.Query("hidden") == "true"
	sessions := h.engine.Store().List(hidden)
	c.JSON(http.StatusOK, NewSuccessResponse(gin.H{
		"sessions": FromSessionSlice(sessions, h.engine.Focused()),
	}))
}

func (h *Handler) ListMessages(c *gin.Context) {
	userID, err := userIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("invalid user id", "INVALID_REQUEST"))
		return
	}
	msgs := h.engine.Store().Messages(userID)
	c.JSON(http.StatusOK, NewSuccessResponse(gin.H{"messages": FromMessageSlice(msgs)}))
}

func (h *Handler) SendText(c *gin.Context) {
	userID, err := userIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("invalid user id", "INVALID_REQUEST"))
		return
	}
	var req SendTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	m := h.engine.SendText(userID, req.Text)
	c.JSON(http.StatusOK, NewSuccessResponse(gin.H{"uuid": m.UUID}))
}

func (h *Handler) SendImage(c *gin.Context) {
	userID, err := userIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("invalid user id", "INVALID_REQUEST"))
		return
	}
	var req SendImageRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	m := h.engine.SendImage(userID, req.ImageContent)
	c.JSON(http.StatusOK, NewSuccessResponse(gin.H{"uuid": m.UUID}))
}

func (h *Handler) SendFile(c *gin.Context) {
	userID, err := userIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("invalid user id", "INVALID_REQUEST"))
		return
	}
	var req SendFileRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	m := h.engine.SendFile(userID, req.FileContent)
	c.JSON(http.StatusOK, NewSuccessResponse(gin.H{"uuid": m.UUID}))
}

func (h *Handler) Resend(c *gin.Context) {
	userID, err := userIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("invalid user id", "INVALID_REQUEST"))
		return
	}
	var req ResendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	if err := h.engine.ResendMessage(userID, req.UUID); err != nil {
		if errors.Is(err, console_errors.ErrNotFailed) {
			c.JSON(http.StatusConflict, NewErrorResponse(err.Error(), "NOT_FAILED"))
			return
		}
		c.JSON(http.StatusBadRequest, NewErrorResponse(err.Error(), "REQUEST_FAILED"))
		return
	}
	c.JSON(http.StatusOK, NewSuccessResponse[any](nil))
}

// UploadAttachment streams one multipart file into S3 and returns the media id
// and URL to embed in a follow-up image or file send.
func (h *Handler) UploadAttachment(c *gin.Context) {
	if h.uploads == nil {
		c.JSON(http.StatusServiceUnavailable, NewErrorResponse("attachment storage not configured", "NOT_CONFIGURED"))
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("missing file", "INVALID_REQUEST"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(err.Error(), "REQUEST_FAILED"))
		return
	}
	defer file.Close()

	mediaID, url, err := h.uploads.PutAttachment(c.Request.Context(), fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"), file)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(err.Error(), "REQUEST_FAILED"))
		return
	}
	c.JSON(http.StatusOK, NewSuccessResponse(AttachmentResponse{MediaID: mediaID, URL: url}))
}

func (h *Handler) Focus(c *gin.Context) {
	userID, err := userIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("invalid user id", "INVALID_REQUEST"))
		return
	}
	h.engine.SelectSession(userID)
	c.JSON(http.StatusOK, NewSuccessResponse[any](nil))
}

func (h *Handler) Pin(c *gin.Context) {
	userID, err := userIDParam(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("invalid user id", "INVALID_REQUEST"))
		return
	}
	var req PinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	h.engine.Store().SetPinned(userID, req.Pinned)
	c.JSON(http.StatusOK, NewSuccessResponse[any](nil))
}

// HideFocused archives the focused conversation and reports which session took
// the focus.
func (h *Handler) HideFocused(c *gin.Context) {
	h.engine.HideFocusedAndReassign()
	c.JSON(http.StatusOK, NewSuccessResponse(gin.H{"focused": h.engine.Focused()}))
}

func (h *Handler) CreateTransfer(c *gin.Context) {
	var req TransferRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	err := h.engine.SendTransferRequest(conversation.TransferQuery{
		UserID:    req.UserID,
		ToStaffID: req.ToStaffID,
		Remarks:   req.Remarks,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(err.Error(), "REQUEST_FAILED"))
		return
	}
	c.JSON(http.StatusOK, NewSuccessResponse[any](nil))
}

func (h *Handler) AnswerTransfer(c *gin.Context) {
	var req TransferResponseBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}
	err := h.engine.RespondTransfer(conversation.TransferResponse{
		UserID:      req.UserID,
		FromStaffID: req.FromStaffID,
		Accept:      req.Accept,
		Reason:      req.Reason,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(err.Error(), "REQUEST_FAILED"))
		return
	}
	c.JSON(http.StatusOK, NewSuccessResponse[any](nil))
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"cursor": h.engine.CursorValue(),
	})
}

func userIDParam(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Param("userId"), 10, 64)
}
