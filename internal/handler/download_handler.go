package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"downloadgateway/internal/model"
	"downloadgateway/internal/service"
	"downloadgateway/pkg/logger"
	"downloadgateway/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// DownloadHandler handles download-related requests
type DownloadHandler struct {
	downloadService *service.DownloadService
}

// NewDownloadHandler creates a new download handler
func NewDownloadHandler(ds *service.DownloadService) *DownloadHandler {
	return &DownloadHandler{downloadService: ds}
}

// Download handles POST /download
func (h *DownloadHandler) Download(c *gin.Context) {
	identity, ok := middleware.ClientIdentity(c)
	if !ok {
		logger.Logger.Error("Download reached without client identity")
		internalError(c)
		return
	}

	req := model.NewDownloadRequest()
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Logger.Warn("Invalid download request",
			zap.Error(err),
			zap.String("client_id", identity.ClientID))
		c.JSON(http.StatusBadRequest, model.DownloadResponse{
			Success: false,
			Message: "invalid request: " + bindErrorMessage(err),
		})
		return
	}

	outcome, err := h.downloadService.HandleDownload(c.Request.Context(), req, identity)
	if err != nil {
		var inputErr *service.ClientInputError
		if errors.As(err, &inputErr) {
			logger.Logger.Info("Download request rejected",
				zap.String("client_id", identity.ClientID),
				zap.String("url", req.URL),
				zap.Error(err))
			c.JSON(http.StatusBadRequest, model.DownloadResponse{
				Success: false,
				Message: inputErr.Error(),
			})
			return
		}
		logger.LogError("Download could not be served", err, zap.String("client_id", identity.ClientID))
		c.JSON(http.StatusInternalServerError, model.DownloadResponse{
			Success: false,
			Message: "internal server error",
		})
		return
	}

	if !outcome.Succeeded() {
		c.JSON(http.StatusOK, model.DownloadResponse{
			Success: false,
			Message: "download failed: " + outcome.Reason,
		})
		return
	}

	c.JSON(http.StatusOK, model.DownloadResponse{
		Success: true,
		Message: "download completed",
		Data: &model.DownloadResultData{
			URL:         outcome.URL,
			Status:      "completed",
			Message:     "download completed",
			ResultCount: outcome.ResultCount(),
			Results:     outcome.Results,
			Timestamp:   outcome.CompletedAt.Format(time.RFC3339),
		},
	})
}

// ClientInfo handles GET /client/info
func (h *DownloadHandler) ClientInfo(c *gin.Context) {
	identity, ok := middleware.ClientIdentity(c)
	if !ok {
		internalError(c)
		return
	}
	c.JSON(http.StatusOK, identity)
}

// bindErrorMessage names the binding problem without echoing decoder internals
func bindErrorMessage(err error) string {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		fieldErrs validator.ValidationErrors
	)
	switch {
	case errors.As(err, &fieldErrs) && len(fieldErrs) > 0:
		fe := fieldErrs[0]
		name := strings.ToLower(fe.Field())
		if fe.Tag() == "required" {
			return name + " is required"
		}
		return name + " is invalid"
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return fmt.Sprintf("field %s must be a %s", typeErr.Field, typeErr.Type.Kind())
	case errors.As(err, &syntaxErr),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF):
		return "body must be a JSON object"
	default:
		return "malformed request body"
	}
}

func internalError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, model.ErrorResponse{
		Error:   "internal_error",
		Message: "Internal server error",
		Code:    http.StatusInternalServerError,
	})
}
