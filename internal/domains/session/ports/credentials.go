package ports

import (
	"context"
	"errors"

	"github.com/Apurer/agenda-client/internal/domains/session/domain"
)

var (
	// ErrCredentialsRejected is returned by exchangers when the remote refuses the credentials.
	ErrCredentialsRejected = errors.New("credentials rejected")
	// ErrExchangeUnavailable covers transport failures and 5xx answers.
	ErrExchangeUnavailable = errors.New("credential exchange unavailable")
	// ErrMalformedToken is returned by decoders for tokens without a usable payload.
	ErrMalformedToken = errors.New("malformed token")
)

// Credentials are what the user types in the sign-in form.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenPair is the answer of the token-issuance endpoint.
type TokenPair struct {
	Access  string
	Refresh string
}

// CredentialExchanger trades credentials for tokens.
type CredentialExchanger interface {
	Exchange(ctx context.Context, creds Credentials) (TokenPair, error)
}

// TokenDecoder extracts the embedded profile without contacting anything.
type TokenDecoder interface {
	Decode(token string) (domain.UserProfile, error)
}

// HeaderSink is the default Authorization slot of the outbound HTTP client.
type HeaderSink interface {
	SetAuthorization(value string)
	ClearAuthorization()
}

// NoopHeaderSink is used when no outbound client is wired.
var NoopHeaderSink HeaderSink = noopHeaderSink{}

type noopHeaderSink struct{}

func (noopHeaderSink) SetAuthorization(string) {}
func (noopHeaderSink) ClearAuthorization()     {}
