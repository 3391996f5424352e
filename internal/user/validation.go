package user

import (
	"errors"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	passwordvalidator "github.com/wagslane/go-password-validator"
)

// RegisterRequest is the body of POST /users.
type RegisterRequest struct {
	Username string `json:"Username" form:"Username" binding:"required,min=5,alphanum"`
	Password string `json:"Password" form:"Password" binding:"required,strongpwd"`
	Email    string `json:"Email" form:"Email" binding:"required,email"`
	Birthday string `json:"Birthday" form:"Birthday" binding:"omitempty,datetime=2006-01-02"`
}

// UpdateRequest is the body of PUT /users/:username. Absent fields are left unchanged.
type UpdateRequest struct {
	Username *string `json:"Username" form:"Username" binding:"omitempty,min=5,alphanum"`
	Password *string `json:"Password" form:"Password" binding:"omitempty,strongpwd"`
	Email    *string `json:"Email" form:"Email" binding:"omitempty,email"`
	Birthday *string `json:"Birthday" form:"Birthday" binding:"omitempty,datetime=2006-01-02"`
}

// RegisterValidators installs the "strongpwd" tag on gin's validator engine.
// It must run before the first request is bound.
func RegisterValidators(minEntropy float64) error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin validator engine is not go-playground/validator")
	}

	return v.RegisterValidation("strongpwd", func(fl validator.FieldLevel) bool {
		return passwordvalidator.Validate(fl.Field().String(), minEntropy) == nil
	})
}
