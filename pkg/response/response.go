package response

import (
	"net/http"

	"user-center/pkg/errcode"
	"user-center/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构，HTTP状态码固定为200，业务结果由 Code 区分
type Response struct {
	Code        int         `json:"code"`            // 0表示成功，其他为错误码
	Data        interface{} `json:"data"`            // 响应数据
	Message     string      `json:"message"`         // 简短说明
	Description string      `json:"description"`     // 详细描述
	Error       string      `json:"error,omitempty"` // 错误详情（仅在开发环境显示）
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    errcode.Success.Code,
		Data:    data,
		Message: errcode.Success.Message,
	})
}

// Error 错误码响应
func Error(c *gin.Context, code errcode.ErrorCode, description string) {
	if description == "" {
		description = code.Description
	}
	c.JSON(http.StatusOK, Response{
		Code:        code.Code,
		Message:     code.Message,
		Description: description,
	})
}

// FromError 将错误转换为响应
// 业务异常按其错误码返回；其他错误记录日志后统一返回系统异常
func FromError(c *gin.Context, err error) {
	if be, ok := errcode.As(err); ok {
		Error(c, be.ErrorCode, be.Description)
		return
	}

	logger.Error("系统异常",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	_ = c.Error(err)

	resp := Response{
		Code:    errcode.SystemError.Code,
		Message: errcode.SystemError.Message,
	}
	// 在开发环境下显示错误详情
	if gin.Mode() == gin.DebugMode {
		resp.Error = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

// Abort 返回错误码响应并终止后续处理，供中间件使用
func Abort(c *gin.Context, code errcode.ErrorCode, description string) {
	Error(c, code, description)
	c.Abort()
}
