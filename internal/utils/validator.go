package utils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FormatValidationError 把绑定校验错误转成可读的提示
func FormatValidationError(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}

	var messages []string
	for _, e := range validationErrors {
		field := e.Field()
		tag := e.Tag()
		param := e.Param()

		var message string
		switch tag {
		case "required":
			message = fmt.Sprintf("%s是必填字段", field)
		case "oneof":
			message = fmt.Sprintf("%s必须是以下值之一: %s", field, param)
		case "min":
			message = fmt.Sprintf("%s不能小于%s", field, param)
		case "max":
			message = fmt.Sprintf("%s不能大于%s", field, param)
		default:
			message = fmt.Sprintf("%s验证失败: %s", field, tag)
		}
		messages = append(messages, message)
	}

	if len(messages) == 0 {
		return err.Error()
	}
	return strings.Join(messages, "; ")
}
