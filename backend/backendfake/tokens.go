package backendfake

import (
	"crypto/rand"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/zenty/portal/users"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

const (
	issuer      = "zenty-backend"
	tokenExpiry = 24 * time.Hour
)

var errInvalidToken = errors.New("invalid token")

// tokenClaims is what the fake backend learns from a credential.
type tokenClaims struct {
	Subject string
	Role    users.Role
	ID      string // jti
}

// hmacSigner signs credentials with a per-instance secret
type hmacSigner struct {
	secret []byte
}

func newHMACSigner() *hmacSigner {
	secret := make([]byte, 32)
	_, _ = rand.Read(secret)
	return &hmacSigner{secret: secret}
}

// issue creates a credential for an account. The role claim mirrors the account kind.
func (h *hmacSigner) issue(subject string, role users.Role) (string, error) {
	claims := jwtlib.MapClaims{
		"iss":  issuer,                                         // The issuer of the token
		"sub":  subject,                                        // The account id
		"role": string(role),                                   // customer or merchant
		"iat":  int64(NowTimeFunc().Unix()),                    // Issued At
		"exp":  int64(NowTimeFunc().Add(tokenExpiry).Unix()), // Expiry
		"jti":  uuid.New().String(),                            // Unique token ID for revocation
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := token.SignedString(h.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token with HMAC")
	}
	return signed, nil
}

func (h *hmacSigner) verificationKey(token *jwtlib.Token) (any, error) {
	if _, ok := token.Method.(*jwtlib.SigningMethodHMAC); !ok {
		return nil, errors.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return h.secret, nil
}

func (h *hmacSigner) parse(raw string) (*tokenClaims, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errInvalidToken
	}
	token, err := jwtlib.Parse(raw, h.verificationKey,
		jwtlib.WithIssuer(issuer),
		jwtlib.WithTimeFunc(NowTimeFunc),
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
	)
	if err != nil || !token.Valid {
		return nil, errInvalidToken
	}
	claims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, errInvalidToken
	}
	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	jti, _ := claims["jti"].(string)
	parsedRole, ok := users.ParseRole(role)
	if sub == "" || !ok {
		return nil, errInvalidToken
	}
	return &tokenClaims{Subject: sub, Role: parsedRole, ID: jti}, nil
}
