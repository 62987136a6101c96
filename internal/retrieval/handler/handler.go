// Package handler provides HTTP handlers for the retrieval service.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/provenance/internal/retrieval/biz"
	apperrors "github.com/kart-io/provenance/pkg/errors"
	ctxlog "github.com/kart-io/provenance/pkg/infra/logger"
)

// Handler handles retrieval HTTP requests.
type Handler struct {
	service biz.Service
}

// NewHandler creates a new Handler.
func NewHandler(service biz.Service) *Handler {
	return &Handler{service: service}
}

// SuccessResponse is a standard success response.
type SuccessResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// writeOK 写入标准成功响应。
func writeOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{Code: 0, Message: "success", Data: data})
}

// writeError 将业务错误映射为 HTTP 响应。Errno 携带自身的状态码与业务码，
// 其余错误一律 500。服务端错误带着 request context 的字段记录日志。
func writeError(c *gin.Context, err error) {
	var errno *apperrors.Errno
	if errors.As(err, &errno) {
		if errno.HTTPStatus() >= http.StatusInternalServerError {
			ctxlog.GetLogger(c.Request.Context()).Errorw("request failed",
				"code", errno.Code,
				"error", err.Error(),
			)
		}
		c.JSON(errno.HTTPStatus(), ErrorResponse{Code: errno.Code, Message: errno.Message(c.GetHeader("Accept-Language"))})
		return
	}
	ctxlog.LogError(c.Request.Context(), "request failed", err, false)
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Code:    apperrors.ErrInternal.Code,
		Message: err.Error(),
	})
}

func writeBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Code:    apperrors.ErrRetrievalInvalidRequest.Code,
		Message: err.Error(),
	})
}
