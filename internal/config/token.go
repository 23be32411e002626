package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidToken is returned for tokens not shaped as identity/secret
	ErrInvalidToken = errors.New("invalid user token")

	// ErrNoToken is returned when an operation needs a token and none is configured
	ErrNoToken = errors.New("no user token configured, run 'codealike-agent token set' first")
)

// Token is the user credential sent with every API request. The textual
// form is "<identity>/<secret>".
type Token struct {
	Identity string
	Secret   string
}

// ParseToken splits raw into identity and secret
func ParseToken(raw string) (Token, error) {
	identity, secret, ok := strings.Cut(strings.TrimSpace(raw), "/")
	if !ok {
		return Token{}, fmt.Errorf("%w: expected identity/secret", ErrInvalidToken)
	}

	identity = strings.TrimSpace(identity)
	secret = strings.TrimSpace(secret)
	if identity == "" || secret == "" {
		return Token{}, fmt.Errorf("%w: identity and secret must not be empty", ErrInvalidToken)
	}
	if strings.ContainsAny(secret, "/ \t") {
		return Token{}, fmt.Errorf("%w: secret contains separators", ErrInvalidToken)
	}

	return Token{Identity: identity, Secret: secret}, nil
}

func (t Token) String() string {
	return t.Identity + "/" + t.Secret
}

// Masked hides most of the secret for display
func (t Token) Masked() string {
	if len(t.Secret) <= 4 {
		return t.Identity + "/****"
	}
	return t.Identity + "/" + strings.Repeat("*", len(t.Secret)-4) + t.Secret[len(t.Secret)-4:]
}
