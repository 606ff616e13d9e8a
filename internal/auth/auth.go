package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"classroom-quiz-service/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// Claims identifies a teacher. Students are anonymous and never carry a token.
type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 teacher tokens issued by the identity provider.
type Verifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer, now: time.Now}
}

// Issue signs a token for teacherID. Used by the dev `token` command and tests.
func (v *Verifier) Issue(teacherID, name string, ttl time.Duration) (string, error) {
	now := v.now()
	claims := &Claims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   teacherID,
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Verify parses the token and returns its claims. Every failure maps to
// domain.ErrUnauthenticated.
func (v *Verifier) Verify(tokenStr string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", domain.ErrUnauthenticated)
	}
	return claims, nil
}

type ctxKey struct{}

// TeacherID returns the authenticated teacher stored by Middleware.
func TeacherID(ctx context.Context) (string, bool) {
	claims, ok := ctx.Value(ctxKey{}).(*Claims)
	if !ok {
		return "", false
	}
	return claims.Subject, true
}

// WithClaims attaches verified claims to ctx.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, ctxKey{}, claims)
}

// Middleware requires a teacher token in the Authorization header. Browsers
// cannot set headers on WebSocket upgrades, so access_token is accepted as a
// query parameter too.
func Middleware(v *Verifier, onError func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				onError(w, r, fmt.Errorf("%w: missing bearer token", domain.ErrUnauthenticated))
				return
			}
			claims, err := v.Verify(token)
			if err != nil {
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return r.URL.Query().Get("access_token")
}
