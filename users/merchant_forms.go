package users

import (
	"math"
	"strconv"
	"strings"

	perrors "github.com/zenty/portal/internal/errors"
	"github.com/zenty/portal/pos"
)

// MerchantProfileUpdate is a partial merchant update (PUT /api/v1/merchants/me); nil
// fields are left untouched.
type MerchantProfileUpdate struct {
	CompanyName *string `json:"companyName,omitempty" form:"companyName"`
	Phone       *string `json:"phone,omitempty" form:"phone"`
	Address     *string `json:"address,omitempty" form:"address"`
	IBAN        *string `json:"iban,omitempty" form:"iban" validate:"omitempty,min=14,max=34,alphanum"`
}

func (u MerchantProfileUpdate) Empty() bool {
	return u.CompanyName == nil && u.Phone == nil && u.Address == nil && u.IBAN == nil
}

func (u MerchantProfileUpdate) Validate() error {
	return validateStruct(u)
}

// NormalizeIBAN drops the spaces people type between groups and upper-cases the rest.
func NormalizeIBAN(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}

// ProductForm is the catalog editor of the merchant products page. Price and VAT are
// typed as text and accept a decimal comma.
type ProductForm struct {
	Name        string `form:"name" validate:"required,max=100"`
	Price       string `form:"price" validate:"required"`
	TVA         string `form:"tva" validate:"required"` // Percent, e.g. "5,5"
	Category    string `form:"category" validate:"required,max=60"`
	Description string `form:"description" validate:"max=500"`
}

func (f ProductForm) Validate() error {
	if err := validateStruct(f); err != nil {
		return err
	}
	fields := make(map[string]string)
	if price, err := parseDecimal(f.Price); err != nil || price <= 0 {
		fields["price"] = "Le prix doit être un montant positif"
	}
	if tva, err := parseDecimal(f.TVA); err != nil || tva < 0 || tva > 100 {
		fields["tva"] = "La TVA doit être comprise entre 0 et 100 %"
	}
	if len(fields) > 0 {
		return perrors.NewValidationError(fields)
	}
	return nil
}

// Product converts a validated form. id is empty for a new product.
func (f ProductForm) Product(id string) pos.Product {
	price, _ := parseDecimal(f.Price)
	tva, _ := parseDecimal(f.TVA)
	return pos.Product{
		ID:          id,
		Name:        strings.TrimSpace(f.Name),
		Price:       math.Round(price*100) / 100,
		TaxRate:     tva / 100,
		Category:    strings.TrimSpace(f.Category),
		Description: strings.TrimSpace(f.Description),
	}
}

// ProductFormFrom prefills the editor with an existing product.
func ProductFormFrom(p pos.Product) ProductForm {
	return ProductForm{
		Name:        p.Name,
		Price:       strconv.FormatFloat(p.Price, 'f', 2, 64),
		TVA:         strconv.FormatFloat(p.TaxRate*100, 'f', -1, 64),
		Category:    p.Category,
		Description: p.Description,
	}
}

func parseDecimal(s string) (float64, error) {
	return strconv.ParseFloat(strings.Replace(strings.TrimSpace(s), ",", ".", 1), 64)
}

// TerminalForm is the body of POST /api/v1/merchants/{id}/terminals
type TerminalForm struct {
	Name     string `json:"name" form:"name" validate:"required,max=60"`
	Location string `json:"location,omitempty" form:"location" validate:"max=120"`
}

func (f TerminalForm) Validate() error {
	return validateStruct(f)
}

// SupportForm is the body of POST /api/v1/support/contact
type SupportForm struct {
	Subject string `json:"subject" form:"subject" validate:"required,max=120"`
	Message string `json:"message" form:"message" validate:"required,min=10,max=5000"`
}

func (f SupportForm) Validate() error {
	return validateStruct(f)
}
