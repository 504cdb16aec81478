package users_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zenty/portal/pos"
	"github.com/zenty/portal/users"
)

func TestProductForm_Validate(t *testing.T) {
	tests := []struct {
		name   string
		form   users.ProductForm
		fields []string
	}{
		{name: "valid", form: users.ProductForm{Name: "Flan", Price: "3,20", TVA: "5,5", Category: "Pâtisseries"}},
		{name: "missing fields", form: users.ProductForm{}, fields: []string{"name", "price", "tva", "category"}},
		{name: "negative price", form: users.ProductForm{Name: "Flan", Price: "-1", TVA: "20", Category: "x"}, fields: []string{"price"}},
		{name: "not a number", form: users.ProductForm{Name: "Flan", Price: "abc", TVA: "120", Category: "x"}, fields: []string{"price", "tva"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.form.Validate()
			if tt.fields == nil {
				require.NoError(t, err)
				return
			}
			fields := fieldsOf(t, err)
			for _, f := range tt.fields {
				require.Contains(t, fields, f)
			}
			require.Len(t, fields, len(tt.fields))
		})
	}
}

func TestProductForm_Product(t *testing.T) {
	form := users.ProductForm{Name: " Flan ", Price: "3,2", TVA: "5,5", Category: "Pâtisseries", Description: "Nature"}
	require.NoError(t, form.Validate())

	p := form.Product("p1")
	require.Equal(t, pos.Product{ID: "p1", Name: "Flan", Price: 3.2, TaxRate: 0.055, Category: "Pâtisseries", Description: "Nature"}, p)

	back := users.ProductFormFrom(p)
	require.Equal(t, "3.20", back.Price)
	require.Equal(t, "5.5", back.TVA)
}

func TestMerchantProfileUpdate_Validate(t *testing.T) {
	require.True(t, users.MerchantProfileUpdate{}.Empty())

	iban := users.NormalizeIBAN("fr76 3000 6000 0112 3456 7890 189")
	require.Equal(t, "FR7630006000011234567890189", iban)
	require.NoError(t, users.MerchantProfileUpdate{IBAN: &iban}.Validate())

	short := "FR76"
	require.Equal(t, "IBAN invalide", fieldsOf(t, users.MerchantProfileUpdate{IBAN: &short}.Validate())["iban"])

	dashed := "FR76-3000-6000-0112-3456"
	require.Contains(t, fieldsOf(t, users.MerchantProfileUpdate{IBAN: &dashed}.Validate()), "iban")
}

func TestTerminalAndSupportForms(t *testing.T) {
	require.NoError(t, users.TerminalForm{Name: "Caisse 1"}.Validate())
	require.Equal(t, "Nom obligatoire", fieldsOf(t, users.TerminalForm{}.Validate())["name"])

	fields := fieldsOf(t, users.SupportForm{Subject: "Aide", Message: "court"}.Validate())
	require.Equal(t, "Minimum 10 caractères", fields["message"])
	require.NoError(t, users.SupportForm{Subject: "Aide", Message: "Le terminal ne démarre plus."}.Validate())
}
