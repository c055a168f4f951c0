package oauth2

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// TokenResponse is the provider's token endpoint payload for both the
// authorization_code and refresh_token grants. ExpiresIn is the relative
// lifetime in seconds; the provider omits refresh_token on refresh grants.
type TokenResponse struct {
	AccessToken  string    `json:"access_token" validate:"required"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int       `json:"expires_in"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	User         TokenUser `json:"user"`
}

// TokenUser is the abbreviated identity embedded in a token response.
type TokenUser struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Error is the RFC 6749 error body returned by the provider.
type Error struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

const stateLetters = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-"

// GenerateState returns a cryptographically random URL-safe value used as
// the anti-forgery state of an authorization request.
func GenerateState() string {
	n := 64
	ret := make([]byte, n)
	for i := 0; i < n; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(stateLetters))))
		if err != nil {
			panic("Random number generation failed")
		}
		ret[i] = stateLetters[num.Int64()]
	}

	return string(ret)
}
