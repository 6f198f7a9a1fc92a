package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerTagNamesOnce sync.Once

// registerValidatorTagNames makes validation errors report JSON field names.
func registerValidatorTagNames() {
	registerTagNamesOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

// writeBindError reports a request that could not be decoded or failed its
// binding rules.
func writeBindError(ctx *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		body := gin.H{"code": "invalid_request"}
		for _, fe := range verrs {
			field := fe.Field()
			msgs, _ := body[field].([]string)
			body[field] = append(msgs, fieldMessage(fe))
		}
		ctx.JSON(http.StatusBadRequest, body)
		return
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		ctx.JSON(http.StatusBadRequest, gin.H{
			typeErr.Field: []string{typeMessage(typeErr.Type)},
			"code":        "invalid_request",
		})
		return
	}

	ctx.JSON(http.StatusBadRequest, gin.H{
		"detail": "JSON parse error - " + err.Error(),
		"code":   "invalid_request",
	})
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "max":
		return "Ensure this field has no more than " + fe.Param() + " characters."
	case "min":
		if fe.Kind() == reflect.Slice {
			return "This list may not be empty."
		}
		return "Ensure this field has at least " + fe.Param() + " characters."
	}
	return "Invalid value."
}

func typeMessage(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "A valid integer is required."
	case reflect.String:
		return "Not a valid string."
	case reflect.Slice:
		return "Expected a list of items."
	}
	return "Invalid value."
}
