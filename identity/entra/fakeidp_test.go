package entra_test

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-entra-query/oauthmodel"
	"github.com/stretchr/testify/require"
)

const (
	testClientID    = "test-client-1"
	testTenantID    = "tenant-1"
	testObjectID    = "oid-alice"
	testName        = "Alice Example"
	testUsername    = "alice@contoso.com"
	testLoginHint   = "hint-alice"
	testKeyID       = "test-key"
	testRedirectURI = "http://127.0.0.1:0/callback"
)

// pendingCode is what the fake authorize endpoint remembers for a code.
type pendingCode struct {
	nonce         string
	codeChallenge string
	redirectURI   string
}

// fakeIdP is a minimal OpenID Connect v2.0 authority: discovery, JWKS,
// authorize (auto-approves), token (authorization_code and refresh_token).
type fakeIdP struct {
	t      *testing.T
	server *httptest.Server
	key    *rsa.PrivateKey

	mu            sync.Mutex
	codes         map[string]pendingCode
	refreshTokens map[string]bool
	issued        int

	// Behaviour switches
	tamperState    bool
	wrongNonce     bool
	denyAuthorize  bool
	lastAuthorize  url.Values
	lastTokenForms []url.Values
}

func newFakeIdP(t *testing.T) *fakeIdP {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	idp := &fakeIdP{
		t:             t,
		key:           key,
		codes:         make(map[string]pendingCode),
		refreshTokens: make(map[string]bool),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /"+testTenantID+"/v2.0/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		idp.discovery(w, idp.issuer())
	})
	mux.HandleFunc("GET /common/v2.0/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		idp.discovery(w, idp.server.URL+"/{tenantid}/v2.0")
	})
	mux.HandleFunc("GET /keys", idp.jwks)
	mux.HandleFunc("GET /authorize", idp.authorize)
	mux.HandleFunc("POST /token", idp.token)
	idp.server = httptest.NewServer(mux)
	t.Cleanup(idp.server.Close)
	return idp
}

func (f *fakeIdP) authority() string {
	return f.server.URL + "/" + testTenantID
}

func (f *fakeIdP) issuer() string {
	return f.authority() + "/v2.0"
}

func (f *fakeIdP) discovery(w http.ResponseWriter, issuer string) {
	writeJSON(w, http.StatusOK, map[string]any{
		"issuer":                                issuer,
		"authorization_endpoint":                f.server.URL + "/authorize",
		"token_endpoint":                        f.server.URL + "/token",
		"jwks_uri":                              f.server.URL + "/keys",
		"end_session_endpoint":                  f.server.URL + "/logout",
		"id_token_signing_alg_values_supported": []string{"RS256"},
	})
}

func (f *fakeIdP) jwks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"keys": []map[string]string{{
			"kty": "RSA",
			"kid": testKeyID,
			"use": "sig",
			"alg": "RS256",
			"n":   base64.RawURLEncoding.EncodeToString(f.key.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(f.key.E)).Bytes()),
		}},
	})
}

func (f *fakeIdP) authorize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	redirect, err := url.Parse(q.Get("redirect_uri"))
	if err != nil {
		http.Error(w, "bad redirect_uri", http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	f.lastAuthorize = q
	f.issued++
	code := fmt.Sprintf("code-%d", f.issued)
	f.codes[code] = pendingCode{
		nonce:         q.Get("nonce"),
		codeChallenge: q.Get("code_challenge"),
		redirectURI:   q.Get("redirect_uri"),
	}
	tamper, deny := f.tamperState, f.denyAuthorize
	f.mu.Unlock()

	params := url.Values{}
	switch {
	case deny:
		params.Set("error", "access_denied")
		params.Set("error_description", "AADSTS65004: User declined to consent")
		params.Set("state", q.Get("state"))
	case tamper:
		params.Set("code", code)
		params.Set("state", "forged-state")
	default:
		params.Set("code", code)
		params.Set("state", q.Get("state"))
	}
	redirect.RawQuery = params.Encode()
	http.Redirect(w, r, redirect.String(), http.StatusFound)
}

func (f *fakeIdP) token(w http.ResponseWriter, r *http.Request) {
	require.NoError(f.t, r.ParseForm())

	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastTokenForms = append(f.lastTokenForms, r.PostForm)

	if r.PostForm.Get("client_id") != testClientID {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_client"})
		return
	}

	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		pending, ok := f.codes[r.PostForm.Get("code")]
		delete(f.codes, r.PostForm.Get("code"))
		hash := sha256.Sum256([]byte(r.PostForm.Get("code_verifier")))
		if !ok || base64.RawURLEncoding.EncodeToString(hash[:]) != pending.codeChallenge || r.PostForm.Get("redirect_uri") != pending.redirectURI {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant", "error_description": "bad code"})
			return
		}
		nonce := pending.nonce
		if f.wrongNonce {
			nonce = "replayed-nonce"
		}
		writeJSON(w, http.StatusOK, f.tokenResponse(r.PostForm.Get("scope"), nonce))

	case "refresh_token":
		rt := r.PostForm.Get("refresh_token")
		if !f.refreshTokens[rt] {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error":             "invalid_grant",
				"error_description": "AADSTS700082: The refresh token has expired",
			})
			return
		}
		delete(f.refreshTokens, rt) // Rotated on every use
		writeJSON(w, http.StatusOK, f.tokenResponse(r.PostForm.Get("scope"), ""))

	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
	}
}

// tokenResponse issues new tokens; callers hold f.mu.
func (f *fakeIdP) tokenResponse(scope, nonce string) oauthmodel.TokenResponse {
	f.issued++
	refreshToken := fmt.Sprintf("rt-%d", f.issued)
	f.refreshTokens[refreshToken] = true

	return oauthmodel.TokenResponse{
		AccessToken:  fmt.Sprintf("at-%d", f.issued),
		IdToken:      f.idToken(nonce),
		TokenType:    "Bearer",
		ExpiresIn:    3600,
		RefreshToken: refreshToken,
		Scope:        scope,
	}
}

func (f *fakeIdP) idToken(nonce string) string {
	now := time.Now()
	claims := jwtlib.MapClaims{
		"iss":                f.issuer(),
		"aud":                testClientID,
		"sub":                "pairwise-subject",
		"oid":                testObjectID,
		"tid":                testTenantID,
		"name":               testName,
		"preferred_username": testUsername,
		"login_hint":         testLoginHint,
		"iat":                now.Unix(),
		"exp":                now.Add(time.Hour).Unix(),
	}
	if nonce != "" {
		claims["nonce"] = nonce
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, claims)
	token.Header["kid"] = testKeyID
	signed, err := token.SignedString(f.key)
	require.NoError(f.t, err)
	return signed
}

// revokeAll invalidates every refresh token issued so far.
func (f *fakeIdP) revokeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshTokens = make(map[string]bool)
}

func (f *fakeIdP) lastTokenForm() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.lastTokenForms) == 0 {
		return nil
	}
	return f.lastTokenForms[len(f.lastTokenForms)-1]
}

func (f *fakeIdP) authorizeParams() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastAuthorize
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// scopeSet splits a space-separated scope parameter.
func scopeSet(s string) []string {
	return strings.Fields(s)
}
