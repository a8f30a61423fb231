package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/plantkeeper/internal/apperror"
	"github.com/sakif/plantkeeper/internal/handler"
	"github.com/sakif/plantkeeper/internal/service"
)

type MockAuthenticator struct {
	Password string
	Calls    int
}

func (m *MockAuthenticator) Login(password string) (*service.Token, error) {
	m.Calls++
	if password != m.Password {
		return nil, apperror.Unauthorized("invalid credentials")
	}
	return &service.Token{AccessToken: "tok", TokenType: "Bearer", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func TestAuthHandler_HandleToken(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCalls  int
	}{
		{"valid", `{"password":"hunter22"}`, http.StatusOK, 1},
		{"wrong password", `{"password":"nope"}`, http.StatusUnauthorized, 1},
		{"missing password", `{}`, http.StatusUnprocessableEntity, 0},
		{"malformed", `{"password":`, http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockAuthenticator{Password: "hunter22"}
			h := handler.NewAuthHandler(mock, testLogger())

			req := httptest.NewRequest(http.MethodPost, "/api/auth/token", strings.NewReader(tt.body))
			rr := httptest.NewRecorder()
			h.HandleToken(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantCalls, mock.Calls)

			env := decodeEnvelope(t, rr)
			if tt.wantStatus == http.StatusOK {
				var tok service.Token
				require.NoError(t, json.Unmarshal(env.Data, &tok))
				assert.Equal(t, "tok", tok.AccessToken)
				assert.Equal(t, "Bearer", tok.TokenType)
			}
		})
	}
}
