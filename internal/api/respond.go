package api

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ajharbinger/dealflowos/internal/errors"
	"github.com/ajharbinger/dealflowos/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const requestTimeout = 10 * time.Second

var validate = validator.New()

// validateStruct runs the validate tags of a request DTO
func validateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.ValidationError(err.Error(), err)
	}

	var msgs []string
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "oneof":
			msgs = append(msgs, field+" must be one of: "+fe.Param())
		case "max":
			msgs = append(msgs, field+" must be at most "+fe.Param())
		case "gt", "gte":
			msgs = append(msgs, field+" must be greater than "+fe.Param())
		case "email":
			msgs = append(msgs, field+" must be a valid email")
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return errors.ValidationError(strings.Join(msgs, ", "), err)
}

// bindJSON decodes the body into dst and validates it
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error(), "code": errors.ErrCodeInvalidInput})
		return false
	}
	if err := validateStruct(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.(*errors.AppError).Message, "code": errors.ErrCodeValidationError})
		return false
	}
	return true
}

// uuidParam parses a path parameter, answering 400 when it is malformed
func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Invalid %s", name), "code": errors.ErrCodeInvalidInput})
		return uuid.Nil, false
	}
	return id, true
}

// requestContext bounds a handler's work by requestTimeout
func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

// respondError maps err to its status. Server-side failures hide their cause.
func respondError(c *gin.Context, log logger.Logger, err error) {
	status := errors.HTTPStatus(err)
	code := errors.CodeOf(err)

	if status >= http.StatusInternalServerError {
		log.Error("Request failed", err, "path", c.FullPath(), "code", code)
		c.JSON(status, gin.H{"error": "Internal server error", "code": code})
		return
	}

	message := err.Error()
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		message = appErr.Message
	}
	c.JSON(status, gin.H{"error": message, "code": code})
}
