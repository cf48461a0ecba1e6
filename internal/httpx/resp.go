package httpx

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Log receives internal errors of failed requests
var Log = logrus.NewEntry(logrus.StandardLogger()).WithField("component", "api")

// Response represents the standard API response structure
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// OK sends a successful response with default message "success"
func OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

// OKMsg sends a successful response with custom message
func OKMsg(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: message,
		Data:    data,
	})
}

// FailErr sends an error response from an AppError. The internal error
// is logged, never returned.
func FailErr(c *gin.Context, err *AppError) {
	if err.Err != nil {
		Log.WithFields(logrus.Fields{
			"code":   err.Code,
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		}).WithError(err.Err).Error(err.Message)
	}

	c.JSON(err.HTTPStatus, Response{
		Code:    err.Code,
		Message: err.Message,
		Data:    err.Data,
	})
}

// ListData is the standard list payload
type ListData struct {
	Items interface{} `json:"items"`
	Total int         `json:"total"`
}

// OKItems sends a successful list response
func OKItems(c *gin.Context, items interface{}, total int) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data: ListData{
			Items: items,
			Total: total,
		},
	})
}
