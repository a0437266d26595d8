package responses

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"modelarena/internal/utils/platformerrors"
)

// ErrorResponse represents an error response with platform error details
type ErrorResponse struct {
	Code      string `json:"code,omitempty"` // UUID from PlatformError
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// HandleError maps domain errors to appropriate HTTP responses.
func HandleError(reqCtx *gin.Context, err error, message string) {
	var platformErr *platformerrors.PlatformError
	if errors.As(err, &platformErr) {
		errorMessage := platformErr.Message
		if errorMessage == "" {
			errorMessage = message
		}
		reqCtx.AbortWithStatusJSON(
			platformerrors.ErrorTypeToHTTPStatus(platformErr.Type),
			ErrorResponse{
				Code:      platformErr.UUID,
				Error:     errorMessage,
				RequestID: platformErr.RequestID,
			},
		)
		return
	}

	reqCtx.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: message})
}

// HandleNewError creates a new typed error at the route layer and handles it
func HandleNewError(reqCtx *gin.Context, errorType platformerrors.ErrorType, message string) {
	err := platformerrors.NewError(reqCtx.Request.Context(), platformerrors.LayerRoute, errorType, message, nil)
	reqCtx.AbortWithStatusJSON(
		platformerrors.ErrorTypeToHTTPStatus(errorType),
		ErrorResponse{
			Code:      err.UUID,
			Error:     message,
			RequestID: err.RequestID,
		},
	)
}
