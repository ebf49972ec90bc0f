package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-entra-query/internal/utils"
)

// ErrOpaqueToken is returned for access tokens that are not JWTs. Entra
// issues those for some resources; they are only meaningful to the resource.
var ErrOpaqueToken = errors.New("access token is opaque")

const timeLayout = "2006-01-02 15:04:05 MST"

// Info is what an access token says about itself. The claims are read
// without verifying the signature: the token came straight from the
// identity provider and is only displayed, never trusted.
type Info struct {
	Name      string
	Username  string   // upn, preferred_username or unique_name
	Audience  []string // aud
	Scopes    []string // scp, delegated permissions
	Roles     []string // roles, application permissions
	TenantID  string   // tid
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Parse decodes the claims of a JWT access token.
func Parse(raw string) (*Info, error) {
	raw = strings.TrimSpace(raw)
	if strings.Count(raw, ".") != 2 {
		return nil, ErrOpaqueToken
	}

	token, _, err := jwtlib.NewParser().ParseUnverified(raw, jwtlib.MapClaims{})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpaqueToken, err)
	}

	claims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, errors.New("error extracting claims")
	}

	info := &Info{
		Name:     stringClaim(claims, "name"),
		Username: firstStringClaim(claims, "upn", "preferred_username", "unique_name"),
		TenantID: stringClaim(claims, "tid"),
	}

	if aud, err := claims.GetAudience(); err == nil {
		info.Audience = []string(aud)
	}
	if scp := stringClaim(claims, "scp"); scp != "" {
		info.Scopes = strings.Fields(scp)
	}
	if roles, ok := claims["roles"].([]any); ok {
		info.Roles = utils.ToStringSlice(roles)
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		info.IssuedAt = iat.Time
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	return info, nil
}

// Describe renders the token for display: the raw token first, followed by
// whatever its claims reveal.
func Describe(raw string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Token: %s", raw)

	info, err := Parse(raw)
	if err != nil {
		return b.String()
	}

	line := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&b, "\n%s: %s", label, value)
		}
	}
	line("Name", info.Name)
	line("Username", info.Username)
	line("Tenant", info.TenantID)
	line("Audience", strings.Join(info.Audience, ", "))
	line("Scopes", strings.Join(info.Scopes, " "))
	line("Roles", strings.Join(info.Roles, ", "))
	if !info.IssuedAt.IsZero() {
		line("Issued at", info.IssuedAt.UTC().Format(timeLayout))
	}
	if !info.ExpiresAt.IsZero() {
		line("Expires at", info.ExpiresAt.UTC().Format(timeLayout))
	}
	return b.String()
}

func stringClaim(claims jwtlib.MapClaims, name string) string {
	s, _ := claims[name].(string)
	return s
}

func firstStringClaim(claims jwtlib.MapClaims, names ...string) string {
	for _, name := range names {
		if s := stringClaim(claims, name); s != "" {
			return s
		}
	}
	return ""
}
