package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/clinic-ledger/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// TagDecimalGTE0 rejects negative decimal amounts. It accepts decimal.Decimal
// fields and numeric strings; an empty string passes.
const TagDecimalGTE0 = "decimal_gte0"

// SetupValidator teaches gin's validator the ledger tags and makes error
// details name fields by their json (or form) tag. Calling it again is harmless.
func SetupValidator() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin validator engine is not go-playground/validator")
	}
	v.RegisterTagNameFunc(wireName)
	return v.RegisterValidation(TagDecimalGTE0, nonNegativeDecimal)
}

func wireName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		switch name {
		case "-":
			return ""
		case "":
			continue
		default:
			return name
		}
	}
	return ""
}

func nonNegativeDecimal(fl validator.FieldLevel) bool {
	switch v := fl.Field().Interface().(type) {
	case decimal.Decimal:
		return v.Sign() >= 0
	case string:
		if v == "" {
			return true
		}
		d, err := decimal.NewFromString(v)
		return err == nil && d.Sign() >= 0
	}
	return false
}

// HandleValidationError answers 400 for a failed bind. Field rule violations
// are listed one per field; anything else is reported as malformed JSON.
func HandleValidationError(c *gin.Context, err error) {
	requestID := GetRequestID(c)

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		c.JSON(http.StatusBadRequest, dto.Fail(dto.ErrCodeInvalidJSON, "Malformed request body", requestID))
		return
	}

	details := make([]dto.ValidationDetail, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, dto.ValidationDetail{Field: fe.Field(), Message: describe(fe)})
	}
	c.JSON(http.StatusBadRequest, dto.FailValidation("Request validation failed", requestID, details))
}

func describe(fe validator.FieldError) string {
	unit := ""
	if fe.Kind() == reflect.String {
		unit = " characters"
	}
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "min", "gte":
		return fmt.Sprintf("Must be at least %s%s", fe.Param(), unit)
	case "max", "lte":
		return fmt.Sprintf("Must be at most %s%s", fe.Param(), unit)
	case "oneof":
		return "Must be one of: " + fe.Param()
	case "uuid":
		return "Invalid UUID format"
	case TagDecimalGTE0:
		return "Must be zero or greater"
	}
	return "Invalid value"
}
