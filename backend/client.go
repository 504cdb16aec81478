// Package backend is the REST client for the Zenty backend API.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"

	perrors "github.com/zenty/portal/internal/errors"
	"github.com/zenty/portal/internal/metrics"
	"github.com/zenty/portal/pos"
	"github.com/zenty/portal/users"
)

// AuthTokenHeader duplicates the bearer credential; the backend reads either.
const AuthTokenHeader = "x-auth-token"

const (
	defaultTimeout    = 10 * time.Second
	maxErrorBodyLen   = 64 << 10
	maxReceiptBodyLen = 10 << 20
	filterDateLayout  = "2006-01-02"
)

// Client talks to the backend. It is safe for concurrent use.
type Client struct {
	baseURL   string
	transport http.RoundTripper
	timeout   time.Duration
}

type Option func(*Client)

// WithTimeout bounds every backend call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithTransport replaces the underlying round tripper (tests, custom TLS).
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.transport = rt
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		transport: http.DefaultTransport,
		timeout:   defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.transport = otelhttp.NewTransport(c.transport)
	return c
}

// call describes one backend request. route is the path template used as metric label.
type call struct {
	method string
	route  string
	path   string
	token  string
	query  url.Values
	body   any
	out    any // JSON target, or *Receipt for a raw body
}

func (c *Client) httpClient(token string) *http.Client {
	if token == "" {
		return &http.Client{Transport: c.transport, Timeout: c.timeout}
	}
	return &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   c.transport,
		},
		Timeout: c.timeout,
	}
}

func (c *Client) do(ctx context.Context, cl call) error {
	var body io.Reader
	if cl.body != nil {
		b, err := json.Marshal(cl.body)
		if err != nil {
			return errors.Wrapf(err, "encode %s body", cl.route)
		}
		body = bytes.NewReader(b)
	}

	target := c.baseURL + cl.path
	if len(cl.query) > 0 {
		target += "?" + cl.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, target, body)
	if err != nil {
		return errors.Wrapf(err, "build %s %s", cl.method, cl.route)
	}
	if _, raw := cl.out.(*Receipt); !raw {
		req.Header.Set("Accept", "application/json")
	}
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cl.token != "" {
		req.Header.Set(AuthTokenHeader, cl.token)
	}

	start := time.Now()
	resp, err := c.httpClient(cl.token).Do(req)
	if err != nil {
		metrics.BackendRequestDuration.WithLabelValues(cl.method, cl.route, "error").Observe(time.Since(start).Seconds())
		return errors.Wrapf(perrors.ErrNetwork, "%s %s: %v", cl.method, cl.route, err)
	}
	defer resp.Body.Close()
	metrics.BackendRequestDuration.WithLabelValues(cl.method, cl.route, strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
		return &perrors.APIError{StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	}

	switch out := cl.out.(type) {
	case nil:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	case *Receipt:
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxReceiptBodyLen))
		if err != nil {
			return errors.Wrapf(perrors.ErrNetwork, "read %s %s body: %v", cl.method, cl.route, err)
		}
		out.ContentType = resp.Header.Get("Content-Type")
		out.Body = data
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(cl.out); err != nil {
		return errors.Wrapf(err, "decode %s %s response", cl.method, cl.route)
	}
	return nil
}

// errorMessage extracts msg, message or error from a JSON error body.
func errorMessage(raw []byte) string {
	var body struct {
		Msg     string `json:"msg"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	switch {
	case body.Msg != "":
		return body.Msg
	case body.Message != "":
		return body.Message
	default:
		return body.Error
	}
}

func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var out TokenResponse
	err := c.do(ctx, call{
		method: http.MethodPost, route: "/api/v1/auth/login", path: "/api/v1/auth/login",
		body: Credentials{Email: email, Password: password}, out: &out,
	})
	if err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", errors.New("login response carried no token")
	}
	return out.Token, nil
}

func (c *Client) RegisterCustomer(ctx context.Context, reg users.CustomerRegistration) (string, error) {
	return c.register(ctx, "/api/v1/users", reg)
}

func (c *Client) RegisterMerchant(ctx context.Context, reg users.MerchantRegistration) (string, error) {
	return c.register(ctx, "/api/v1/merchants/register", reg)
}

func (c *Client) register(ctx context.Context, path string, payload any) (string, error) {
	var out TokenResponse
	if err := c.do(ctx, call{method: http.MethodPost, route: path, path: path, body: payload, out: &out}); err != nil {
		return "", err
	}
	if out.Token == "" {
		return "", errors.New("registration response carried no token")
	}
	return out.Token, nil
}

func (c *Client) CustomerProfile(ctx context.Context, token string) (*users.Customer, error) {
	var out users.Customer
	err := c.do(ctx, call{method: http.MethodGet, route: "/api/v1/auth", path: "/api/v1/auth", token: token, out: &out})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) MerchantProfile(ctx context.Context, token string) (*users.Merchant, error) {
	var out users.Merchant
	err := c.do(ctx, call{method: http.MethodGet, route: "/api/v1/merchants/me", path: "/api/v1/merchants/me", token: token, out: &out})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProfile(ctx context.Context, token string, update users.ProfileUpdate) (*users.Customer, error) {
	var out users.Customer
	err := c.do(ctx, call{
		method: http.MethodPut, route: "/api/v1/users/profile", path: "/api/v1/users/profile",
		token: token, body: update, out: &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteUser(ctx context.Context, token, userID string) error {
	return c.do(ctx, call{
		method: http.MethodDelete, route: "/api/v1/users/{id}", path: "/api/v1/users/" + url.PathEscape(userID),
		token: token,
	})
}

// BindSession authorizes the pending terminal session for userID.
func (c *Client) BindSession(ctx context.Context, token, sessionID, userID string) error {
	return c.do(ctx, call{
		method: http.MethodPut, route: "/api/v1/sessions/{id}", path: "/api/v1/sessions/" + url.PathEscape(sessionID),
		token: token, body: BindRequest{UserID: userID},
	})
}

func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.do(ctx, call{
		method: http.MethodPost, route: "/api/auth/forgot-password", path: "/api/auth/forgot-password",
		body: ForgotPasswordRequest{Email: email},
	})
}

func (c *Client) ResetPassword(ctx context.Context, resetToken, password string) error {
	return c.do(ctx, call{
		method: http.MethodPost, route: "/api/auth/reset-password", path: "/api/auth/reset-password",
		body: ResetPasswordRequest{Token: resetToken, Password: password},
	})
}

func (c *Client) Stats(ctx context.Context, token, userID string) (*Stats, error) {
	var out statsEnvelope
	if err := c.do(ctx, c.userCall(token, userID, "stats", &out)); err != nil {
		return nil, err
	}
	return &out.Stats, nil
}

func (c *Client) Transactions(ctx context.Context, token, userID string) ([]Transaction, error) {
	var out transactionsEnvelope
	if err := c.do(ctx, c.userCall(token, userID, "transactions", &out)); err != nil {
		return nil, err
	}
	return out.Transactions, nil
}

func (c *Client) PalmStatus(ctx context.Context, token, userID string) (*PalmStatus, error) {
	var out PalmStatus
	if err := c.do(ctx, c.userCall(token, userID, "palm/status", &out)); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Cards(ctx context.Context, token, userID string) ([]Card, error) {
	var out cardsEnvelope
	if err := c.do(ctx, c.userCall(token, userID, "cards", &out)); err != nil {
		return nil, err
	}
	return out.Cards, nil
}

func (c *Client) Products(ctx context.Context, token string) ([]pos.Product, error) {
	var out productList
	err := c.do(ctx, call{method: http.MethodGet, route: "/api/v1/products", path: "/api/v1/products", token: token, out: &out})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) userCall(token, userID, resource string, out any) call {
	return call{
		method: http.MethodGet,
		route:  "/api/v1/users/{id}/" + resource,
		path:   "/api/v1/users/" + url.PathEscape(userID) + "/" + resource,
		token:  token,
		out:    out,
	}
}

func (c *Client) UpdateMerchantProfile(ctx context.Context, token string, update users.MerchantProfileUpdate) (*users.Merchant, error) {
	var out users.Merchant
	err := c.do(ctx, call{
		method: http.MethodPut, route: "/api/v1/merchants/me", path: "/api/v1/merchants/me",
		token: token, body: update, out: &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateProduct(ctx context.Context, token string, p pos.Product) (*pos.Product, error) {
	p.ID = ""
	var out pos.Product
	err := c.do(ctx, call{method: http.MethodPost, route: "/api/v1/products", path: "/api/v1/products", token: token, body: p, out: &out})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProduct(ctx context.Context, token string, p pos.Product) (*pos.Product, error) {
	if p.ID == "" {
		return nil, errors.New("update product: missing id")
	}
	var out pos.Product
	err := c.do(ctx, call{
		method: http.MethodPut, route: "/api/v1/products/{id}", path: "/api/v1/products/" + url.PathEscape(p.ID),
		token: token, body: p, out: &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteProduct(ctx context.Context, token, productID string) error {
	return c.do(ctx, call{
		method: http.MethodDelete, route: "/api/v1/products/{id}", path: "/api/v1/products/" + url.PathEscape(productID),
		token: token,
	})
}

func (c *Client) Terminals(ctx context.Context, token, merchantID string) ([]Terminal, error) {
	var out terminalsEnvelope
	if err := c.do(ctx, c.merchantCall(http.MethodGet, token, merchantID, "terminals", nil, &out)); err != nil {
		return nil, err
	}
	return out.Terminals, nil
}

func (c *Client) CreateTerminal(ctx context.Context, token, merchantID string, form users.TerminalForm) (*Terminal, error) {
	var out terminalEnvelope
	if err := c.do(ctx, c.merchantCall(http.MethodPost, token, merchantID, "terminals", form, &out)); err != nil {
		return nil, err
	}
	return &out.Terminal, nil
}

// MerchantTransactions lists the payments a merchant received, newest first as the
// backend returns them.
func (c *Client) MerchantTransactions(ctx context.Context, token, merchantID string, filter PaymentFilter) ([]Payment, error) {
	cl := c.merchantCall(http.MethodGet, token, merchantID, "transactions", nil, nil)
	cl.query = url.Values{}
	if !filter.Start.IsZero() {
		cl.query.Set("start", filter.Start.Format(filterDateLayout))
	}
	if !filter.End.IsZero() {
		cl.query.Set("end", filter.End.Format(filterDateLayout))
	}
	var out paymentsEnvelope
	cl.out = &out
	if err := c.do(ctx, cl); err != nil {
		return nil, err
	}
	return out.Transactions, nil
}

func (c *Client) Finances(ctx context.Context, token, merchantID string) (*Finances, error) {
	var out Finances
	if err := c.do(ctx, c.merchantCall(http.MethodGet, token, merchantID, "finances", nil, &out)); err != nil {
		return nil, err
	}
	return &out, nil
}

// Receipt downloads the receipt of one of the merchant's transactions.
func (c *Client) Receipt(ctx context.Context, token, transactionID string) (*Receipt, error) {
	var out Receipt
	err := c.do(ctx, call{
		method: http.MethodGet,
		route:  "/api/v1/merchants/transactions/{id}/receipt",
		path:   "/api/v1/merchants/transactions/" + url.PathEscape(transactionID) + "/receipt",
		token:  token,
		out:    &out,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ContactSupport(ctx context.Context, token string, form users.SupportForm) error {
	return c.do(ctx, call{
		method: http.MethodPost, route: "/api/v1/support/contact", path: "/api/v1/support/contact",
		token: token, body: form,
	})
}

func (c *Client) merchantCall(method, token, merchantID, resource string, body, out any) call {
	return call{
		method: method,
		route:  "/api/v1/merchants/{id}/" + resource,
		path:   "/api/v1/merchants/" + url.PathEscape(merchantID) + "/" + resource,
		token:  token,
		body:   body,
		out:    out,
	}
}
