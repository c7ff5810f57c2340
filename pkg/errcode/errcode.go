package errcode

import (
	"errors"
	"fmt"
)

// ErrorCode 业务错误码
// Code 返回给前端的数字码，Message 简短说明，Description 默认详细描述
type ErrorCode struct {
	Code        int
	Message     string
	Description string
}

var (
	Success         = ErrorCode{Code: 0, Message: "ok"}
	ParamsError     = ErrorCode{Code: 40000, Message: "请求参数错误"}
	NullError       = ErrorCode{Code: 40001, Message: "请求数据为空"}
	NotLogin        = ErrorCode{Code: 40100, Message: "未登录"}
	NoAuth          = ErrorCode{Code: 40101, Message: "无权限"}
	TooManyRequests = ErrorCode{Code: 42900, Message: "请求过于频繁"}
	SystemError     = ErrorCode{Code: 50000, Message: "系统内部异常"}
)

// BusinessError 业务异常，在检测点返回，由接口层统一转换为响应
type BusinessError struct {
	ErrorCode
	Description string
}

// New 使用错误码和自定义描述创建业务异常
func New(code ErrorCode, description string) *BusinessError {
	return &BusinessError{ErrorCode: code, Description: description}
}

// FromCode 只使用错误码默认描述
func FromCode(code ErrorCode) *BusinessError {
	return New(code, code.Description)
}

func (e *BusinessError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%d %s: %s", e.Code, e.Message, e.Description)
	}
	return fmt.Sprintf("%d %s", e.Code, e.Message)
}

// Is 错误码相同即视为同类错误，便于 errors.Is(err, errcode.FromCode(errcode.NoAuth))
func (e *BusinessError) Is(target error) bool {
	var t *BusinessError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// As 从错误链中提取业务异常
func As(err error) (*BusinessError, bool) {
	var be *BusinessError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

// CodeOf 获取错误对应的错误码，非业务异常统一视为系统异常
func CodeOf(err error) int {
	if err == nil {
		return Success.Code
	}
	if be, ok := As(err); ok {
		return be.Code
	}
	return SystemError.Code
}
