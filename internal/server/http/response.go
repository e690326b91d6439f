package httpserver

import (
	"github.com/gin-gonic/gin"

	"github.com/and161185/recipebox/internal/schema"
)

type errorBody struct {
	Error  string              `json:"error"`
	Fields []schema.FieldError `json:"fields,omitempty"`
}

func errorResponse(c *gin.Context, code int, msg string) {
	c.JSON(code, errorBody{Error: msg})
}
