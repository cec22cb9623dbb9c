package jwt

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/Apurer/agenda-client/internal/domains/session/domain"
	"github.com/Apurer/agenda-client/internal/domains/session/ports"
)

// Decoder reads the profile carried under the "user" claim of an access
// token. The signature is not checked here; the backend verifies it.
type Decoder struct {
	parser *gojwt.Parser
}

func NewDecoder() *Decoder {
	return &Decoder{parser: gojwt.NewParser(gojwt.WithJSONNumber())}
}

type profileClaims struct {
	User *userClaim `json:"user"`
	gojwt.RegisteredClaims
}

// userClaim accepts numeric ids as issued by the backend.
type userClaim struct {
	ID      any    `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Manager bool   `json:"manager"`
	Photo   string `json:"photo"`
}

// Decode extracts and validates the embedded profile.
func (d *Decoder) Decode(token string) (domain.UserProfile, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.UserProfile{}, fmt.Errorf("%w: empty token", ports.ErrMalformedToken)
	}
	parsed, _, err := d.parser.ParseUnverified(token, &profileClaims{})
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("%w: %v", ports.ErrMalformedToken, err)
	}
	claims, ok := parsed.Claims.(*profileClaims)
	if !ok || claims.User == nil {
		return domain.UserProfile{}, fmt.Errorf("%w: missing user claim", ports.ErrMalformedToken)
	}
	profile := domain.UserProfile{
		ID:      formatID(claims.User.ID),
		Name:    claims.User.Name,
		Email:   claims.User.Email,
		Manager: claims.User.Manager,
		Photo:   claims.User.Photo,
	}
	if err := profile.Validate(); err != nil {
		return domain.UserProfile{}, fmt.Errorf("%w: %w", ports.ErrMalformedToken, err)
	}
	return profile, nil
}

func formatID(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case json.Number:
		return id.String()
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return ""
	}
}

var _ ports.TokenDecoder = (*Decoder)(nil)
