package utils

import (
	"fmt"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidators adds the custom binding tags used by request structs.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}
	if err := v.RegisterValidation("currency", func(fl validator.FieldLevel) bool {
		return ValidCurrency(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("splitmethod", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "EQUAL", "PERCENTAGE", "AMOUNT", "CUSTOM":
			return true
		}
		return false
	})
}
