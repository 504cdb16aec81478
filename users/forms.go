package users

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	perrors "github.com/zenty/portal/internal/errors"
)

// MinPasswordLength is the shortest password the registration and reset forms accept.
const MinPasswordLength = 8

// RegistrationForm is the union of the customer and merchant sign-up forms.
type RegistrationForm struct {
	Role            Role   `form:"role" validate:"oneof=customer merchant"`
	Email           string `form:"email" validate:"required,email"`
	Password        string `form:"password" validate:"required,min=8"`
	ConfirmPassword string `form:"confirmPassword" validate:"eqfield=Password"`
	Phone           string `form:"phone" validate:"required"`
	AcceptTerms     bool   `form:"acceptTerms" validate:"required"`

	FirstName string `form:"firstName" validate:"required_if=Role customer"`
	LastName  string `form:"lastName" validate:"required_if=Role customer"`

	CompanyName string `form:"companyName" validate:"required_if=Role merchant"`
	Address     string `form:"address" validate:"required_if=Role merchant"`
}

// CustomerRegistration is the body of POST /api/v1/users
type CustomerRegistration struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Phone     string `json:"phone"`
}

// MerchantRegistration is the body of POST /api/v1/merchants/register
type MerchantRegistration struct {
	CompanyName string `json:"companyName"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
}

// Payload returns the role-shaped registration body.
func (f RegistrationForm) Payload() any {
	if f.Role == RoleMerchant {
		return MerchantRegistration{
			CompanyName: f.CompanyName,
			Email:       f.Email,
			Password:    f.Password,
			Phone:       f.Phone,
			Address:     f.Address,
		}
	}
	return CustomerRegistration{
		FirstName: f.FirstName,
		LastName:  f.LastName,
		Email:     f.Email,
		Password:  f.Password,
		Phone:     f.Phone,
	}
}

// ProfileUpdate is a partial customer update; nil fields are left untouched.
type ProfileUpdate struct {
	FirstName *string `json:"firstName,omitempty" form:"firstName"`
	LastName  *string `json:"lastName,omitempty" form:"lastName"`
	Email     *string `json:"email,omitempty" form:"email" validate:"omitempty,email"`
	Phone     *string `json:"phone,omitempty" form:"phone"`
}

func (u ProfileUpdate) Empty() bool {
	return u.FirstName == nil && u.LastName == nil && u.Email == nil && u.Phone == nil
}

// PasswordResetForm is submitted from the link mailed by the forgot-password flow.
type PasswordResetForm struct {
	Token           string `form:"token" validate:"required"`
	Password        string `form:"password" validate:"required,min=8"`
	ConfirmPassword string `form:"confirmPassword" validate:"eqfield=Password"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

func (f RegistrationForm) Validate() error {
	return validateStruct(f)
}

func (u ProfileUpdate) Validate() error {
	return validateStruct(u)
}

func (f PasswordResetForm) Validate() error {
	return validateStruct(f)
}

// validateStruct runs the struct tags and converts failures into a *perrors.ValidationError
// keyed by form field name.
func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		if _, exists := fields[fe.Field()]; exists {
			continue
		}
		fields[fe.Field()] = fieldError(fe)
	}
	return perrors.NewValidationError(fields)
}

// fieldError converts a single validation failure into the message shown next to the field.
func fieldError(fe validator.FieldError) string {
	switch fe.Field() {
	case "acceptTerms":
		return "Accepter les CGU"
	case "confirmPassword":
		return "Les mots de passe ne correspondent pas"
	case "role":
		return "Type de compte invalide"
	}
	switch fe.Tag() {
	case "required", "required_if":
		return requiredLabel(fe.Field()) + " obligatoire"
	case "email":
		return "Email invalide"
	case "min":
		if fe.Field() == "iban" {
			return "IBAN invalide"
		}
		return "Minimum " + fe.Param() + " caractères"
	case "max":
		return "Maximum " + fe.Param() + " caractères"
	case "alphanum":
		return requiredLabel(fe.Field()) + " invalide"
	default:
		return fe.Field() + " invalide"
	}
}

func requiredLabel(field string) string {
	switch field {
	case "email":
		return "Email"
	case "password":
		return "Mot de passe"
	case "phone":
		return "Téléphone"
	case "firstName":
		return "Prénom"
	case "lastName":
		return "Nom"
	case "companyName":
		return "Nom de l'entreprise"
	case "address":
		return "Adresse"
	case "token":
		return "Token de réinitialisation"
	case "name":
		return "Nom"
	case "price":
		return "Prix"
	case "tva":
		return "TVA"
	case "category":
		return "Catégorie"
	case "subject":
		return "Sujet"
	case "message":
		return "Message"
	case "iban":
		return "IBAN"
	}
	return field
}
