package httpapi

import (
	"errors"
	"regexp"
	"sync"
	"unicode"

	craveAuth "github.com/CraveEvents/craveAuth"
	"github.com/CraveEvents/craveAuth/middleware"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type emailRequest struct {
	Email string `json:"email" binding:"required,email,max=254"`
}

type verifyOTPRequest struct {
	Email string `json:"email" binding:"required,email,max=254"`
	OTP   string `json:"otp" binding:"required,numeric,min=6,max=10"`
}

type signupRequest struct {
	Role        string `json:"role" binding:"required,signuprole"`
	Name        string `json:"name" binding:"required,min=2,max=50"`
	Email       string `json:"email" binding:"required,email,max=254"`
	Phone       string `json:"phone" binding:"required,phone"`
	Password    string `json:"password" binding:"required,strongpassword"`
	IDProof     string `json:"idProof" binding:"required_if=Role vendor,max=500"`
	AboutVendor string `json:"aboutVendor" binding:"max=1000"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email,max=254"`
	Password string `json:"password" binding:"required,max=128"`
	Role     string `json:"role" binding:"required,role"`
}

type googleRequest struct {
	Credential string `json:"credential" binding:"required"`
	ClientID   string `json:"client_id" binding:"required"`
	Role       string `json:"role" binding:"required,role"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email,max=254"`
	Role  string `json:"role" binding:"required,role"`
}

type resetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,strongpassword"`
}

type refreshRequest struct {
	Role string `json:"role" binding:"required,role"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required,oneof=active pending rejected blocked"`
}

var (
	phonePattern = regexp.MustCompile(`^[6-9][0-9]{9}$`)

	registerOnce sync.Once
)

// registerValidations adds the custom tags to gin's validator. Safe to call
// more than once.
func registerValidations() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
			_, err := craveAuth.ParseRole(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation("signuprole", func(fl validator.FieldLevel) bool {
			role, err := craveAuth.ParseRole(fl.Field().String())
			return err == nil && role.CanSelfRegister()
		})
		_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
			return phonePattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("strongpassword", func(fl validator.FieldLevel) bool {
			return strongPassword(fl.Field().String())
		})
	})
}

// strongPassword requires 8 to 64 characters with upper, lower, digit and
// symbol classes present.
func strongPassword(s string) bool {
	if len(s) < 8 || len(s) > 64 {
		return false
	}
	var upper, lower, digit, symbol bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			symbol = true
		}
	}
	return upper && lower && digit && symbol
}

// bindMessage picks the user-facing message for a failed bind.
func bindMessage(err error) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			switch fe.Tag() {
			case "required", "required_if":
				return middleware.MsgMissingParameters
			case "role", "signuprole":
				return middleware.MsgInvalidRole
			}
		}
	}
	return middleware.MsgValidation
}
