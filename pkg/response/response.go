package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Body is the standard API response envelope. Code carries the machine-readable
// error kind when the request failed.
type Body struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// OK sends a 200 JSON response with data.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

// Created sends a 201 JSON response with data.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data})
}

// Fail sends an error envelope with an explicit status and code.
func Fail(c *gin.Context, status int, code, msg string) {
	c.JSON(status, Body{Success: false, Error: msg, Code: code})
}

func BadRequest(c *gin.Context, msg string) {
	Fail(c, http.StatusBadRequest, "ValidationFailed", msg)
}

func Unauthorized(c *gin.Context, msg string) {
	Fail(c, http.StatusUnauthorized, "Unauthorized", msg)
}

func Forbidden(c *gin.Context, msg string) {
	Fail(c, http.StatusForbidden, "Forbidden", msg)
}

func NotFound(c *gin.Context, msg string) {
	Fail(c, http.StatusNotFound, "NotFound", msg)
}

// ServiceUnavailable is used when an optional backend (archive storage, redis) is not configured or down.
func ServiceUnavailable(c *gin.Context, msg string) {
	Fail(c, http.StatusServiceUnavailable, "Unavailable", msg)
}

func Internal(c *gin.Context, msg string) {
	Fail(c, http.StatusInternalServerError, "Internal", msg)
}
