package server

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// TokenAuth admits a connection when it presents the shared token, either
// as the token query parameter or as a bearer Authorization header. An
// empty token admits everyone.
type TokenAuth struct {
	token string
}

func NewTokenAuth(token string) TokenAuth { return TokenAuth{token: token} }

func (a TokenAuth) Enabled() bool { return a.token != "" }

// Check reads the token of an HTTP upgrade request.
func (a TokenAuth) Check(r *http.Request) error {
	if !a.Enabled() {
		return nil
	}
	got := r.URL.Query().Get("token")
	if got == "" {
		got = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	return a.CheckToken(got)
}

// CheckToken compares a token presented in-band, as QUIC clients do in
// their hello.
func (a TokenAuth) CheckToken(got string) error {
	if !a.Enabled() {
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(got), []byte(a.token)) != 1 {
		return ErrUnauthorized
	}
	return nil
}
