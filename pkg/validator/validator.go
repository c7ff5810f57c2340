package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FormatValidationError 将参数绑定/校验错误转换为可读描述
func FormatValidationError(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		messages := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			messages = append(messages, getFieldErrorMessage(fieldError))
		}
		return strings.Join(messages, "; ")
	}
	return "请求参数格式错误"
}

func getFieldErrorMessage(fe validator.FieldError) string {
	field := getFieldName(fe.Field())

	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s不能为空", field)
	case "email":
		return fmt.Sprintf("%s格式不正确", field)
	case "url":
		return fmt.Sprintf("%s必须是合法的URL", field)
	case "oneof":
		return fmt.Sprintf("%s取值必须为 %s 之一", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s必须大于%s", field, fe.Param())
	case "min":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s至少%s个字符", field, fe.Param())
		}
		return fmt.Sprintf("%s不能小于%s", field, fe.Param())
	case "max":
		if fe.Kind().String() == "string" {
			return fmt.Sprintf("%s最多%s个字符", field, fe.Param())
		}
		return fmt.Sprintf("%s不能大于%s", field, fe.Param())
	default:
		return fmt.Sprintf("%s不合法", field)
	}
}

func getFieldName(field string) string {
	fieldNames := map[string]string{
		"ID":          "用户ID",
		"Username":    "昵称",
		"UserAccount": "账号",
		"AvatarURL":   "头像",
		"Gender":      "性别",
		"Phone":       "电话",
		"Email":       "邮箱",
		"PlanetCode":  "星球编号",
		"Tags":        "标签",
		"UserRole":    "角色",
		"UserStatus":  "状态",
	}

	if name, ok := fieldNames[field]; ok {
		return name
	}
	return field
}
