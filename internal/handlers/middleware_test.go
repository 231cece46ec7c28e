package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"controlling_resistances/internal/service"

	"github.com/gin-gonic/gin"
)

// guardedRouter exposes one route behind authMiddleware and one behind
// requireOperator, both echoing the caller identity.
func guardedRouter(auth *mockAuth) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(&service.Service{Authorization: auth}, nil)
	echo := func(c *gin.Context) {
		id := identity(c)
		c.JSON(http.StatusOK, gin.H{"operator_id": id.OperatorID, "role": id.Role})
	}
	r := gin.New()
	r.GET("/read", h.authMiddleware, echo)
	r.POST("/write", h.authMiddleware, h.requireOperator, echo)
	return r
}

func serveWithHeader(r http.Handler, method, path, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if header != "" {
		req.Header.Set(authorizationHeader, header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware_RejectsBadHeaders(t *testing.T) {
	cases := []struct {
		name     string
		header   string
		parseErr error
		want     string
	}{
		{"missing header", "", nil, errMissingAuth},
		{"other scheme", "Token abc", nil, errAuthFormat},
		{"scheme only", "Bearer", nil, errAuthFormat},
		{"empty token", "Bearer ", nil, errAuthFormat},
		{"lowercase scheme", "bearer abc", nil, errAuthFormat},
		{"rejected token", "Bearer expired", service.ErrInvalidToken, errTokenRejected},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auth := operatorAuth()
			auth.parseErr = tc.parseErr
			w := serveWithHeader(guardedRouter(auth), http.MethodGet, "/read", tc.header)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401 (body=%s)", w.Code, w.Body.String())
			}
			var out map[string]string
			_ = json.Unmarshal(w.Body.Bytes(), &out)
			if out["error"] != tc.want {
				t.Fatalf("error = %q, want %q", out["error"], tc.want)
			}
		})
	}
}

func TestAuthMiddleware_StoresIdentity(t *testing.T) {
	auth := viewerAuth()
	w := serveWithHeader(guardedRouter(auth), http.MethodGet, "/read", "Bearer good-token")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", w.Code, w.Body.String())
	}
	var out struct {
		OperatorID int    `json:"operator_id"`
		Role       string `json:"role"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.OperatorID != 2 || out.Role != "viewer" {
		t.Fatalf("unexpected identity: %+v", out)
	}
	if auth.lastToken != "good-token" {
		t.Fatalf("ParseToken got %q, want good-token", auth.lastToken)
	}
}

func TestRequireOperator(t *testing.T) {
	w := serveWithHeader(guardedRouter(viewerAuth()), http.MethodPost, "/write", "Bearer t")
	if w.Code != http.StatusForbidden {
		t.Fatalf("viewer: status = %d, want 403", w.Code)
	}

	w = serveWithHeader(guardedRouter(operatorAuth()), http.MethodPost, "/write", "Bearer t")
	if w.Code != http.StatusOK {
		t.Fatalf("operator: status = %d, want 200", w.Code)
	}

	auth := operatorAuth()
	auth.parseErr = errors.New("expired")
	w = serveWithHeader(guardedRouter(auth), http.MethodPost, "/write", "Bearer t")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: status = %d, want 401", w.Code)
	}
}
