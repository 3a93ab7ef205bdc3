package http

import (
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/holiman/uint256"
)

// Reusable error payload
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}
type ErrorResponse struct {
	Error   string       `json:"error"`
	Kind    string       `json:"kind,omitempty"`
	Details []FieldError `json:"details,omitempty"`
}

type CustomValidator struct{ v *validator.Validate }

func NewValidator() *CustomValidator {
	v := validator.New()

	// 20-byte hex address, 0x optional, never the zero address
	_ = v.RegisterValidation("address", func(fl validator.FieldLevel) bool {
		s := strings.TrimSpace(fl.Field().String())
		return common.IsHexAddress(s) && common.HexToAddress(s) != (common.Address{})
	})
	// token amount: base-10 integer that fits 256 bits
	_ = v.RegisterValidation("amount", func(fl validator.FieldLevel) bool {
		s := strings.TrimSpace(fl.Field().String())
		if s == "" {
			return false
		}
		_, err := uint256.FromDecimal(s)
		return err == nil
	})

	return &CustomValidator{v: v}
}

func (cv *CustomValidator) Validate(i any) error { return cv.v.Struct(i) }

// Map validator.ValidationErrors → []FieldError with readable messages.
func ToFieldErrors(err error) []FieldError {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return []FieldError{{Field: "_", Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(ve))
	for _, e := range ve {
		field := e.Field()
		switch e.Tag() {
		case "required":
			out = append(out, FieldError{Field: field, Message: "is required"})
		case "address":
			out = append(out, FieldError{Field: field, Message: "must be a non-zero 20-byte hex address"})
		case "amount":
			out = append(out, FieldError{Field: field, Message: "must be a base-10 integer below 2^256"})
		case "gte":
			out = append(out, FieldError{Field: field, Message: "must be greater than or equal to " + e.Param()})
		case "lte":
			out = append(out, FieldError{Field: field, Message: "must be less than or equal to " + e.Param()})
		default:
			out = append(out, FieldError{Field: field, Message: e.Tag() + " validation failed"})
		}
	}
	return out
}

// toAddress and toAmount assume the struct already passed validation.
func toAddress(s string) common.Address { return common.HexToAddress(strings.TrimSpace(s)) }

func toAmount(s string) *uint256.Int {
	v, err := uint256.FromDecimal(strings.TrimSpace(s))
	if err != nil {
		return new(uint256.Int)
	}
	return v
}
