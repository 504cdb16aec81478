package backend

import (
	"encoding/json"
	"time"

	"github.com/zenty/portal/pos"
)

// Credentials is the body of POST /api/v1/auth/login
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is returned by login and both registration endpoints.
type TokenResponse struct {
	Token string `json:"token"`
}

// BindRequest is the body of PUT /api/v1/sessions/{id}
type BindRequest struct {
	UserID string `json:"user_id"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// Stats summarises a customer's palm payments.
type Stats struct {
	PaymentsThisMonth int        `json:"paymentsThisMonth"`
	TotalAmount       string     `json:"totalAmount"`
	LastUsed          *time.Time `json:"lastUsed"`
}

type Transaction struct {
	ID            string    `json:"id"`
	Merchant      string    `json:"merchant"`
	Amount        float64   `json:"amount"`
	Date          time.Time `json:"date"`
	Status        string    `json:"status"` // completed, failed or pending
	PaymentMethod string    `json:"payment_method,omitempty"`
	Description   string    `json:"description,omitempty"`
}

type RegistrationLocation struct {
	MerchantName string `json:"merchantName"`
	Address      string `json:"address"`
	TerminalName string `json:"terminalName"`
}

type PalmStatus struct {
	PalmRegistered       bool                  `json:"palmRegistered"`
	Verified             bool                  `json:"verified"`
	RegistrationDate     *time.Time            `json:"registrationDate,omitempty"`
	RegistrationLocation *RegistrationLocation `json:"registrationLocation,omitempty"`
}

// Card is a tokenized payment card on file.
type Card struct {
	ID        string `json:"id"`
	Last4     string `json:"last4"`
	Brand     string `json:"brand"`
	ExpMonth  int    `json:"exp_month"`
	ExpYear   int    `json:"exp_year"`
	IsDefault bool   `json:"is_default"`
}

type statsEnvelope struct {
	Stats Stats `json:"stats"`
}

type transactionsEnvelope struct {
	Transactions []Transaction `json:"transactions"`
}

type cardsEnvelope struct {
	Cards []Card `json:"cards"`
}

// productList accepts both a bare array and {"products": [...]}.
type productList []pos.Product

func (p *productList) UnmarshalJSON(data []byte) error {
	var bare []pos.Product
	if err := json.Unmarshal(data, &bare); err == nil {
		*p = bare
		return nil
	}
	var env struct {
		Products []pos.Product `json:"products"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	*p = env.Products
	return nil
}

// Terminal is a payment terminal registered to a merchant.
type Terminal struct {
	ID          string     `json:"_id"`
	TerminalUID string     `json:"terminalUid"`
	Name        string     `json:"name"`
	Location    string     `json:"location,omitempty"`
	Status      string     `json:"status"` // active, inactive or maintenance
	LastPingAt  *time.Time `json:"lastPingAt,omitempty"`
}

// Payer is the customer side of a merchant payment, as populated by the backend.
type Payer struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email,omitempty"`
}

type TerminalRef struct {
	TerminalUID string `json:"terminalUid"`
	Name        string `json:"name"`
	Location    string `json:"location,omitempty"`
}

// Payment is a transaction received by a merchant.
type Payment struct {
	ID          string       `json:"_id"`
	User        *Payer       `json:"userId,omitempty"`
	Amount      float64      `json:"amount"`
	Currency    string       `json:"currency"`
	CreatedAt   time.Time    `json:"createdAt"`
	Terminal    *TerminalRef `json:"terminalId,omitempty"`
	Status      string       `json:"status"`
	Description string       `json:"description,omitempty"`
}

// PaymentFilter narrows the merchant transaction list to a range of days. Zero bounds
// are open.
type PaymentFilter struct {
	Start time.Time
	End   time.Time
}

// Payout is a transfer of collected funds to the merchant's IBAN.
type Payout struct {
	ID          string     `json:"_id"`
	Amount      float64    `json:"amount"`
	Currency    string     `json:"currency"`
	Status      string     `json:"status"` // pending, paid or failed
	IBAN        string     `json:"iban"`
	CreatedAt   time.Time  `json:"createdAt"`
	ProcessedAt *time.Time `json:"processedAt,omitempty"`
}

type Finances struct {
	PendingBalance float64  `json:"pendingBalance"`
	IBAN           string   `json:"iban"`
	Payouts        []Payout `json:"payouts"`
}

// Receipt is a rendered payment receipt, usually a PDF.
type Receipt struct {
	ContentType string
	Body        []byte
}

type terminalsEnvelope struct {
	Terminals []Terminal `json:"terminals"`
}

type terminalEnvelope struct {
	Terminal Terminal `json:"terminal"`
}

type paymentsEnvelope struct {
	Transactions []Payment `json:"transactions"`
	Count        int       `json:"count"`
}
