package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/pressroom/internal/auth"
	"github.com/odyssey-erp/pressroom/internal/rbac"
	_ "github.com/odyssey-erp/pressroom/testing"
)

func TestIssueAndVerify(t *testing.T) {
	verifier, err := auth.NewVerifier("secret", "pressroom")
	require.NoError(t, err)
	issuer := auth.NewIssuer("secret", "pressroom")

	token, exp, err := issuer.Issue(rbac.Principal{UserID: 12, Role: rbac.RoleStaff}, time.Hour)
	require.NoError(t, err)
	require.True(t, exp.After(time.Now()))

	principal, err := verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, int64(12), principal.UserID)
	require.Equal(t, rbac.RoleStaff, principal.Role)
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	verifier, err := auth.NewVerifier("secret", "pressroom")
	require.NoError(t, err)

	wrongSecret, _, err := auth.NewIssuer("other", "pressroom").Issue(rbac.Principal{UserID: 1, Role: rbac.RoleAdmin}, time.Hour)
	require.NoError(t, err)
	_, err = verifier.Verify(wrongSecret)
	require.ErrorIs(t, err, auth.ErrInvalidToken)

	expired, _, err := auth.NewIssuer("secret", "pressroom").Issue(rbac.Principal{UserID: 1, Role: rbac.RoleAdmin}, -time.Minute)
	require.NoError(t, err)
	_, err = verifier.Verify(expired)
	require.ErrorIs(t, err, auth.ErrInvalidToken)

	badRole := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		Role: "ROOT",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "5",
			Issuer:    "pressroom",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := badRole.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = verifier.Verify(signed)
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestAuthenticateMiddleware(t *testing.T) {
	verifier, err := auth.NewVerifier("secret", "")
	require.NoError(t, err)
	token, _, err := auth.NewIssuer("secret", "").Issue(rbac.Principal{UserID: 3, Role: rbac.RoleCustomer}, time.Hour)
	require.NoError(t, err)

	var seen rbac.Principal
	handler := auth.Authenticate(verifier, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = rbac.PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, rbac.Principal{UserID: 3, Role: rbac.RoleCustomer}, seen)
}
