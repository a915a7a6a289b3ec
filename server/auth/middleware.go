package auth

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
)

type contextKey string

const (
	// PrincipalContextKey is the context key for the authenticated principal
	PrincipalContextKey contextKey = "principal"

	// DefaultRealm is used when Middleware is given an empty realm
	DefaultRealm = "librecur"
)

// GetPrincipalFromContext retrieves the authenticated principal from the context
func GetPrincipalFromContext(ctx context.Context) *Principal {
	if p, ok := ctx.Value(PrincipalContextKey).(*Principal); ok {
		return p
	}
	return nil
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, PrincipalContextKey, p)
}

// Middleware creates HTTP middleware that enforces authentication.
// Paths listed in public skip it entirely.
func Middleware(authenticator Authenticator, realm string, public ...string) func(http.Handler) http.Handler {
	if realm == "" {
		realm = DefaultRealm
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, p := range public {
				if r.URL.Path == p {
					next.ServeHTTP(w, r)
					return
				}
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				requestAuth(w, realm)
				return
			}

			creds, err := ParseAuthorization(authHeader)
			if err != nil {
				requestAuth(w, realm)
				return
			}

			principal, err := authenticator.Authenticate(r.Context(), creds)
			if err != nil {
				requestAuth(w, realm)
				return
			}

			if err := authenticator.ValidateAccess(r.Context(), principal, r.Method, r.URL.Path); err != nil {
				if IsForbidden(err) {
					http.Error(w, "Forbidden", http.StatusForbidden)
					return
				}
				requestAuth(w, realm)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// requestAuth sends WWW-Authenticate headers for both supported schemes
func requestAuth(w http.ResponseWriter, realm string) {
	w.Header().Add("WWW-Authenticate", `Basic realm="`+realm+`"`)
	w.Header().Add("WWW-Authenticate", `Bearer realm="`+realm+`"`)
	http.Error(w, "Unauthorized", http.StatusUnauthorized)
}

// ParseAuthorization parses a Basic or Bearer Authorization header value
func ParseAuthorization(header string) (Credentials, error) {
	scheme, value, ok := strings.Cut(header, " ")
	if !ok {
		return Credentials{}, &Error{
			Type:    ErrInvalidCredentials,
			Message: "invalid authorization header format",
		}
	}

	switch strings.ToLower(scheme) {
	case "basic":
		return parseBasicAuth(strings.TrimSpace(value))
	case "bearer":
		token := strings.TrimSpace(value)
		if token == "" {
			return Credentials{}, &Error{
				Type:    ErrInvalidCredentials,
				Message: "empty bearer token",
			}
		}
		return Credentials{Token: token}, nil
	default:
		return Credentials{}, &Error{
			Type:    ErrInvalidCredentials,
			Message: "unsupported authorization scheme: " + scheme,
		}
	}
}

// parseBasicAuth parses the base64 part of an HTTP Basic Authentication header
func parseBasicAuth(encoded string) (Credentials, error) {
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return Credentials{}, &Error{
			Type:    ErrInvalidCredentials,
			Message: "invalid base64 encoding",
			Err:     err,
		}
	}

	username, password, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return Credentials{}, &Error{
			Type:    ErrInvalidCredentials,
			Message: "invalid credentials format",
		}
	}

	return Credentials{
		Username: username,
		Password: password,
	}, nil
}
