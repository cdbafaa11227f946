package middleware

import (
	"recipe-importer/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// abortWithError 以統一的錯誤格式中止請求
func abortWithError(c *gin.Context, err *common.CustomError, details string) {
	c.AbortWithStatusJSON(err.Status, common.ErrorResponse{
		Code:    err.Code,
		Message: err.Message,
		Details: details,
	})
}
