package httpserver

import (
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/and161185/recipebox/internal/errs"
	"github.com/and161185/recipebox/internal/identity"
	"github.com/and161185/recipebox/internal/schema"
)

// Logger writes one line per request. Bodies are never logged.
func Logger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("dur", time.Since(start)),
			zap.String("peer", c.ClientIP()),
		}
		if id, ok := identity.UserID(c.Request.Context()); ok {
			fields = append(fields, zap.String("user_id", id.String()))
		}
		log.Info("http", fields...)
	}
}

// Recovery turns a handler panic into a 500.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic",
					zap.Any("reason", r),
					zap.ByteString("stack", debug.Stack()),
					zap.String("route", c.FullPath()),
				)
				errorResponse(c, http.StatusInternalServerError, "internal error")
				c.Abort()
			}
		}()
		c.Next()
	}
}

// Auth resolves an "Authorization: Bearer" header into the request identity.
// Requests without one stay anonymous; a bad token is rejected with 401.
func Auth(v *identity.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, ok := identity.BearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.Next()
			return
		}
		id, err := v.Verify(tok)
		if err != nil {
			errorResponse(c, http.StatusUnauthorized, "invalid token")
			c.Abort()
			return
		}
		c.Request = c.Request.WithContext(identity.WithUserID(c.Request.Context(), id))
		c.Next()
	}
}

// RequireUser rejects anonymous requests.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := identity.UserID(c.Request.Context()); !ok {
			errorResponse(c, http.StatusUnauthorized, "not signed in")
			c.Abort()
			return
		}
		c.Next()
	}
}

// ErrorHandler renders the last error a handler attached with c.Error.
func ErrorHandler(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		var verr *schema.Error
		switch {
		case errors.As(err, &verr):
			c.JSON(http.StatusBadRequest, errorBody{Error: "validation failed", Fields: verr.Fields})
		case errors.Is(err, errs.ErrValidation):
			errorResponse(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, errs.ErrCompressionFailed):
			errorResponse(c, http.StatusUnprocessableEntity, "image could not be processed")
		case errors.Is(err, errs.ErrUnauthorized):
			errorResponse(c, http.StatusUnauthorized, "not signed in")
		case errors.Is(err, errs.ErrNotFound):
			errorResponse(c, http.StatusNotFound, "not found")
		case errors.Is(err, errs.ErrAlreadyExists):
			errorResponse(c, http.StatusConflict, "already exists")
		case errors.Is(err, errs.ErrRateLimited):
			errorResponse(c, http.StatusTooManyRequests, "too many attempts, try later")
		default:
			log.Error("http handler failed", zap.String("route", c.FullPath()), zap.Error(err))
			errorResponse(c, http.StatusInternalServerError, "internal error")
		}
	}
}
