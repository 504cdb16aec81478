package users

import (
	"encoding/json"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Role is the identity kind a session represents
type Role string

const (
	RoleCustomer Role = "customer" // Consumer paying with their palm
	RoleMerchant Role = "merchant" // Business operating terminals
)

// ParseRole accepts the wire/form spelling of a role.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleCustomer:
		return RoleCustomer, true
	case RoleMerchant:
		return RoleMerchant, true
	}
	return "", false
}

func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleMerchant
}

func (r Role) String() string {
	return string(r)
}

// Identity is the resolved Customer or Merchant of a session.
type Identity interface {
	IdentityID() string
	DisplayName() string
	Role() Role
}

type Customer struct {
	ID             string    `json:"_id"`
	Email          string    `json:"email"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Phone          string    `json:"phone"`
	ProfilePicture string    `json:"profilePicture,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

var _ Identity = (*Customer)(nil)

// UnmarshalJSON accepts both "_id" and "id" for the identifier.
func (c *Customer) UnmarshalJSON(data []byte) error {
	type alias Customer
	aux := struct {
		*alias
		AltID string `json:"id"`
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if c.ID == "" {
		c.ID = aux.AltID
	}
	return nil
}

func (c *Customer) IdentityID() string { return c.ID }
func (c *Customer) Role() Role         { return RoleCustomer }

func (c *Customer) DisplayName() string {
	name := strings.TrimSpace(c.FirstName + " " + c.LastName)
	if name == "" {
		return c.Email
	}
	return name
}

type Merchant struct {
	ID          string    `json:"_id"`
	CompanyName string    `json:"companyName"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Address     string    `json:"address"`
	IBAN        string    `json:"iban,omitempty"` // Payout account
	CreatedAt   time.Time `json:"createdAt"`
}

var _ Identity = (*Merchant)(nil)

// UnmarshalJSON accepts both "_id" and "id" for the identifier.
func (m *Merchant) UnmarshalJSON(data []byte) error {
	type alias Merchant
	aux := struct {
		*alias
		AltID string `json:"id"`
	}{alias: (*alias)(m)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if m.ID == "" {
		m.ID = aux.AltID
	}
	return nil
}

func (m *Merchant) IdentityID() string { return m.ID }
func (m *Merchant) Role() Role         { return RoleMerchant }

func (m *Merchant) DisplayName() string {
	if m.CompanyName == "" {
		return m.Email
	}
	return m.CompanyName
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
