package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"controlling_resistances/internal/models"
	"controlling_resistances/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postJSON(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthHandlers_SignUp(t *testing.T) {
	tests := []struct {
		name string
		err  error
		body string
		code int
	}{
		{name: "created", body: `{"username":"shift-lead","password":"furnace-room-7"}`, code: http.StatusCreated},
		{name: "missing password", body: `{"username":"shift-lead"}`, code: http.StatusBadRequest},
		{name: "invalid username", err: service.ErrInvalidUsername, body: `{"username":"x","password":"furnace-room-7"}`, code: http.StatusBadRequest},
		{name: "weak password", err: service.ErrWeakPassword, body: `{"username":"shift-lead","password":"short"}`, code: http.StatusBadRequest},
		{name: "taken", err: service.ErrUsernameTaken, body: `{"username":"shift-lead","password":"furnace-room-7"}`, code: http.StatusConflict},
		{name: "store failure", err: errors.New("disk full"), body: `{"username":"shift-lead","password":"furnace-room-7"}`, code: http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			auth := &mockAuth{
				signUpOp:  models.Operator{ID: 42, Username: "shift-lead", Role: models.RoleOperator, PasswordHash: "secret-hash"},
				signUpErr: tc.err,
			}
			w := postJSON(newTestRouter(&service.Service{Authorization: auth}), "/auth/sign-up", tc.body)
			require.Equal(t, tc.code, w.Code, w.Body.String())
			if tc.code != http.StatusCreated {
				return
			}
			var op map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &op))
			assert.EqualValues(t, 42, op["id"])
			assert.Equal(t, models.RoleOperator, op["role"])
			assert.NotContains(t, w.Body.String(), "secret-hash")
			assert.Equal(t, "furnace-room-7", auth.lastPassword)
		})
	}
}

func TestAuthHandlers_SignIn(t *testing.T) {
	auth := &mockAuth{token: "tok123"}
	r := newTestRouter(&service.Service{Authorization: auth})

	w := postJSON(r, "/auth/sign-in", `{"username":"shift-lead","password":"furnace-room-7"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var out map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "tok123", out["token"])
	assert.Equal(t, "shift-lead", auth.lastUsername)

	w = postJSON(r, "/auth/sign-in", `{"username":1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	auth.tokenErr = service.ErrInvalidCredentials
	w = postJSON(r, "/auth/sign-in", `{"username":"shift-lead","password":"nope-nope"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	auth.tokenErr = errors.New("database is locked")
	w = postJSON(r, "/auth/sign-in", `{"username":"shift-lead","password":"furnace-room-7"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAuthHandlers_SetRole(t *testing.T) {
	tests := []struct {
		name string
		auth *mockAuth
		err  error
		path string
		body string
		code int
	}{
		{name: "promoted", auth: operatorAuth(), path: "/api/v1/operators/5/role", body: `{"role":"operator"}`, code: http.StatusOK},
		{name: "viewer forbidden", auth: viewerAuth(), path: "/api/v1/operators/5/role", body: `{"role":"operator"}`, code: http.StatusForbidden},
		{name: "bad id", auth: operatorAuth(), path: "/api/v1/operators/abc/role", body: `{"role":"viewer"}`, code: http.StatusBadRequest},
		{name: "unknown role", auth: operatorAuth(), path: "/api/v1/operators/5/role", body: `{"role":"admin"}`, code: http.StatusBadRequest},
		{name: "no account", auth: operatorAuth(), err: service.ErrAccountNotFound, path: "/api/v1/operators/9/role", body: `{"role":"viewer"}`, code: http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.auth.roleErr = tc.err
			r := newTestRouter(&service.Service{Authorization: tc.auth})

			req := httptest.NewRequest(http.MethodPut, tc.path, bytes.NewBufferString(tc.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, authorized(req))

			require.Equal(t, tc.code, w.Code, w.Body.String())
			if tc.code == http.StatusOK {
				assert.Equal(t, 5, tc.auth.lastRoleID)
				assert.Equal(t, models.RoleOperator, tc.auth.lastRole)
			}
		})
	}
}
