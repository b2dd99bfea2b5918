package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequireAny(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := Middleware{}.RequireAny(RoleAdmin)(ok)

	cases := []struct {
		name      string
		principal *Principal
		want      int
	}{
		{name: "anonymous", want: http.StatusUnauthorized},
		{name: "customer", principal: &Principal{UserID: 7, Role: RoleCustomer}, want: http.StatusForbidden},
		{name: "admin", principal: &Principal{UserID: 1, Role: RoleAdmin}, want: http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.principal != nil {
				req = req.WithContext(ContextWithPrincipal(req.Context(), *tc.principal))
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			require.Equal(t, tc.want, rr.Code)
		})
	}
}

func TestParseRole(t *testing.T) {
	role, ok := ParseRole(" staff ")
	require.True(t, ok)
	require.Equal(t, RoleStaff, role)

	_, ok = ParseRole("superuser")
	require.False(t, ok)
}

func TestPrincipalOwns(t *testing.T) {
	id := int64(42)
	other := int64(43)
	require.True(t, Principal{UserID: 42, Role: RoleCustomer}.Owns(&id))
	require.False(t, Principal{UserID: 42, Role: RoleCustomer}.Owns(&other))
	require.False(t, Principal{UserID: 42, Role: RoleStaff}.Owns(&id))
	require.False(t, Principal{UserID: 42, Role: RoleCustomer}.Owns(nil))
}
