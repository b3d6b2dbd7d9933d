// Package handlers implements the HTTP API handlers.  Every response uses the
// common.APIResponse envelope; error payloads carry the typed error code so
// clients can branch without parsing messages.
package handlers

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clauselens/clauselens/internal/interfaces/http/middleware"
	"github.com/clauselens/clauselens/pkg/errors"
	"github.com/clauselens/clauselens/pkg/types/common"
)

func respond[T any](c *gin.Context, status int, data T) {
	resp := common.NewSuccessResponse(data)
	resp.RequestID = middleware.RequestIDFromContext(c.Request.Context())
	c.JSON(status, resp)
}

func respondPage[T any](c *gin.Context, data T, p common.Pagination) {
	resp := common.NewPaginatedResponse(data, p)
	resp.RequestID = middleware.RequestIDFromContext(c.Request.Context())
	c.JSON(http.StatusOK, resp)
}

// respondError maps the error chain to an HTTP status via its typed code.
func respondError(c *gin.Context, err error) {
	code := errors.GetCode(err)

	message := err.Error()
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		message = appErr.Message
	}

	resp := common.NewErrorResponse(string(code), message)
	resp.RequestID = middleware.RequestIDFromContext(c.Request.Context())
	c.AbortWithStatusJSON(code.HTTPStatus(), resp)
}

func respondBadRequest(c *gin.Context, message string) {
	respondError(c, errors.New(errors.ErrCodeBadRequest, message))
}

// pathID parses the :id route parameter as a UUID.
func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondBadRequest(c, "invalid contract id")
		return uuid.Nil, false
	}
	return id, true
}
