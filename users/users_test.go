package users_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	perrors "github.com/zenty/portal/internal/errors"
	"github.com/zenty/portal/internal/utils"
	"github.com/zenty/portal/users"
)

func validCustomerForm() users.RegistrationForm {
	return users.RegistrationForm{
		Role:            users.RoleCustomer,
		Email:           "jean.dupont@example.com",
		Password:        "motdepasse1",
		ConfirmPassword: "motdepasse1",
		Phone:           "0601020304",
		AcceptTerms:     true,
		FirstName:       "Jean",
		LastName:        "Dupont",
	}
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var ve *perrors.ValidationError
	require.ErrorAs(t, err, &ve)
	require.ErrorIs(t, err, perrors.ErrValidation)
	return ve.Fields
}

func TestParseRole(t *testing.T) {
	r, ok := users.ParseRole(" Merchant ")
	require.True(t, ok)
	require.Equal(t, users.RoleMerchant, r)

	_, ok = users.ParseRole("admin")
	require.False(t, ok)
}

func TestRegistrationForm_Validate(t *testing.T) {
	t.Run("valid customer", func(t *testing.T) {
		require.NoError(t, validCustomerForm().Validate())
	})

	t.Run("short password and mismatch", func(t *testing.T) {
		f := validCustomerForm()
		f.Password = "short"
		f.ConfirmPassword = "different"
		fields := fieldsOf(t, f.Validate())
		require.Equal(t, "Minimum 8 caractères", fields["password"])
		require.Equal(t, "Les mots de passe ne correspondent pas", fields["confirmPassword"])
	})

	t.Run("customer requires names", func(t *testing.T) {
		f := validCustomerForm()
		f.FirstName = ""
		f.LastName = ""
		fields := fieldsOf(t, f.Validate())
		require.Contains(t, fields, "firstName")
		require.Contains(t, fields, "lastName")
		require.NotContains(t, fields, "companyName")
	})

	t.Run("merchant requires company and address", func(t *testing.T) {
		f := validCustomerForm()
		f.Role = users.RoleMerchant
		f.FirstName = ""
		f.LastName = ""
		fields := fieldsOf(t, f.Validate())
		require.Equal(t, "Nom de l'entreprise obligatoire", fields["companyName"])
		require.Equal(t, "Adresse obligatoire", fields["address"])
		require.NotContains(t, fields, "firstName")
	})

	t.Run("terms must be accepted", func(t *testing.T) {
		f := validCustomerForm()
		f.AcceptTerms = false
		fields := fieldsOf(t, f.Validate())
		require.Equal(t, "Accepter les CGU", fields["acceptTerms"])
	})
}

func TestRegistrationForm_Payload(t *testing.T) {
	f := validCustomerForm()
	c, ok := f.Payload().(users.CustomerRegistration)
	require.True(t, ok)
	require.Equal(t, "Jean", c.FirstName)

	f.Role = users.RoleMerchant
	f.CompanyName = "Boulangerie Martin"
	f.Address = "1 rue de Paris"
	m, ok := f.Payload().(users.MerchantRegistration)
	require.True(t, ok)
	require.Equal(t, "Boulangerie Martin", m.CompanyName)
	require.Equal(t, "1 rue de Paris", m.Address)
}

func TestProfileUpdate_Validate(t *testing.T) {
	require.NoError(t, users.ProfileUpdate{}.Validate())
	require.True(t, users.ProfileUpdate{}.Empty())

	fields := fieldsOf(t, users.ProfileUpdate{Email: utils.Ptr("not-an-email")}.Validate())
	require.Equal(t, "Email invalide", fields["email"])
}

func TestPasswordResetForm_Validate(t *testing.T) {
	require.NoError(t, users.PasswordResetForm{Token: "t", Password: "longenough", ConfirmPassword: "longenough"}.Validate())

	fields := fieldsOf(t, users.PasswordResetForm{Password: "longenough", ConfirmPassword: "longenough"}.Validate())
	require.Contains(t, fields, "token")
}

func TestCustomer_UnmarshalAcceptsBothIDSpellings(t *testing.T) {
	var c users.Customer
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"u1","firstName":"Jean","lastName":"Dupont"}`), &c))
	require.Equal(t, "u1", c.ID)
	require.Equal(t, "Jean Dupont", c.DisplayName())

	var m users.Merchant
	require.NoError(t, json.Unmarshal([]byte(`{"id":"m1","companyName":"Café"}`), &m))
	require.Equal(t, "m1", m.ID)
	require.Equal(t, users.RoleMerchant, m.Role())
}

func TestHashPassword(t *testing.T) {
	hash, err := users.HashPassword("Password123")
	require.NoError(t, err)
	require.True(t, users.CheckPasswordHash("Password123", hash))
	require.False(t, users.CheckPasswordHash("password123", hash))
}
