package auth

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Credentials is the login form. It is sent to the backend and never stored.
type Credentials struct {
	Email    string `form:"email" json:"email" binding:"required,email,max=254"`
	Password string `form:"password" json:"password" binding:"required,max=128"`
}

// Validate runs the binding rules so malformed input never reaches the backend.
func (c *Credentials) Validate() error {
	c.Email = strings.TrimSpace(c.Email)
	err := binding.Validator.ValidateStruct(c)
	if err == nil {
		return nil
	}
	return &AuthError{Reason: ReasonValidation, Message: validationMessage(err), Err: err}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Email and password are required"
	}
	fe := verrs[0]
	switch {
	case fe.Tag() == "required":
		return "Email and password are required"
	case fe.Field() == "Email":
		return "Please enter a valid email address"
	}
	return "Please check the form and try again"
}
