package response

import (
	"github.com/gin-gonic/gin"
)

type errorBody struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(200, data)
}

func Error(c *gin.Context, status int, code string, message string) {
	c.AbortWithStatusJSON(status, errorBody{Code: code, Detail: message})
}

// ErrorWithFields adds fields to the error body. code and detail win over
// fields with the same name.
func ErrorWithFields(c *gin.Context, status int, code string, message string, fields map[string]interface{}) {
	body := make(map[string]interface{}, len(fields)+2)
	for k, v := range fields {
		body[k] = v
	}
	body["code"] = code
	body["detail"] = message
	c.AbortWithStatusJSON(status, body)
}
