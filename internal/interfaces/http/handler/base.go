package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/propledger/backend/internal/domain/shared"
	"github.com/propledger/backend/internal/infrastructure/logger"
	"github.com/propledger/backend/internal/interfaces/http/dto"
	"github.com/propledger/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

func getRequestID(c *gin.Context) string {
	if id := middleware.GetRequestID(c); id != "" {
		return id
	}
	return c.GetHeader(middleware.RequestIDHeader)
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessPage sends one page of a list with pagination meta
func SuccessPage[T any](c *gin.Context, page *shared.Paginated[T]) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(page.Items, page.Total, page.Page, page.PageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// Forbidden sends a 403 forbidden response
func (h *BaseHandler) Forbidden(c *gin.Context, message string) {
	h.Error(c, http.StatusForbidden, dto.ErrCodeForbidden, message)
}

// BindError answers a failed ShouldBind: field details for validation
// failures, INVALID_JSON for malformed bodies
func (h *BaseHandler) BindError(c *gin.Context, err error) {
	if details := middleware.ValidationDetails(err); details != nil {
		c.JSON(http.StatusBadRequest, dto.NewValidationErrorResponse("Request validation failed", getRequestID(c), details))
		return
	}
	h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Malformed request: "+err.Error())
}

// HandleError maps domain errors to their status and code; anything else is
// logged and answered with a generic 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		status := dto.DomainErrorStatus(domainErr)
		if status >= http.StatusInternalServerError {
			logger.L(c.Request.Context()).Error("domain invariant violated", zap.Error(err))
		}
		h.Error(c, status, domainErr.Code, domainErr.Message)
		return
	}

	logger.L(c.Request.Context()).Error("request failed", zap.Error(err))
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred")
}

// pathID parses the :id path parameter, answering 400 when it is not a UUID
func (h *BaseHandler) pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidID, "Invalid ID format")
		return uuid.Nil, false
	}
	return id, true
}

// authorizeProperty answers 403 when the caller's token is scoped to other properties
func (h *BaseHandler) authorizeProperty(c *gin.Context, propertyID uuid.UUID) bool {
	if middleware.CanAccessProperty(c, propertyID.String()) {
		return true
	}
	h.Forbidden(c, "Not allowed to access this property")
	return false
}

// scopedToken reports whether the caller's token restricts properties
func scopedToken(c *gin.Context) bool {
	claims := middleware.GetJWTClaims(c)
	return claims != nil && len(claims.PropertyIDs) > 0
}

// scopeListFilter narrows a list to the caller's property when the filter
// names none and the token is scoped to exactly one. A token scoped to several
// properties must name one.
func (h *BaseHandler) scopeListFilter(c *gin.Context, propertyID *string) bool {
	if *propertyID != "" {
		id, err := uuid.Parse(*propertyID)
		if err != nil {
			h.BadRequest(c, "property_id must be a UUID")
			return false
		}
		return h.authorizeProperty(c, id)
	}
	if !scopedToken(c) {
		return true
	}
	claims := middleware.GetJWTClaims(c)
	if len(claims.PropertyIDs) == 1 {
		if id, err := uuid.Parse(claims.PropertyIDs[0]); err == nil {
			*propertyID = id.String()
			return true
		}
	}
	h.Forbidden(c, "property_id filter is required for this token")
	return false
}
