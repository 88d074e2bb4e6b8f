// Package dto 定义 HTTP 请求与响应结构，以及请求字段校验。
package dto

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ReasonRequestInvalid 是请求结构校验失败时的 reason。
const ReasonRequestInvalid = "REQUEST_INVALID"

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(field reflect.StructField) string {
			return jsonName(field.Tag.Get("json"), field.Name)
		})
	})
	return validate
}

// Validate 按 validate tag 校验请求，失败时返回 400 并列出首个出错字段。
func Validate(req any) error {
	err := validatorInstance().Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if stderrors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return errors.BadRequest(ReasonRequestInvalid, describe(fe)).WithCause(err)
	}
	return errors.BadRequest(ReasonRequestInvalid, err.Error())
}

// ParseID 解析路径中的 UUID 参数。
func ParseID(name, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, errors.BadRequest(ReasonRequestInvalid, fmt.Sprintf("%s must be a valid uuid", name))
	}
	return id, nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email", fe.Field())
	case "url", "http_url":
		return fmt.Sprintf("%s must be a valid url", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag())
	}
}

func jsonName(tag, fallback string) string {
	name, _, _ := strings.Cut(tag, ",")
	switch name {
	case "-":
		return ""
	case "":
		return fallback
	default:
		return name
	}
}
