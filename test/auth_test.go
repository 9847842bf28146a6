package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/2beens/watchstats/internal/auth"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/require"
)

type testUser struct {
	ID       int
	FullName string
	Email    string
	Password string
	Token    string
}

// registerAndLogin creates a fresh user through the public API and
// logs it in, returning the user together with its session token.
func (s *IntegrationTestSuite) registerAndLogin(ctx context.Context, t *testing.T) *testUser {
	t.Helper()

	user := &testUser{
		FullName: gofakeit.Name(),
		Email:    strings.ToLower(gofakeit.Email()),
		Password: gofakeit.Password(true, true, true, false, false, 12),
	}

	registerReqJson, err := json.Marshal(auth.RegisterRequest{
		FullName: user.FullName,
		Email:    user.Email,
		Password: user.Password,
	})
	require.NoError(t, err)

	req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/api/v0.1/register", serverEndpoint), bytes.NewBuffer(registerReqJson))
	require.NoError(t, err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var registerResp auth.RegisterResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&registerResp))
	require.NotNil(t, registerResp.User)
	user.ID = registerResp.User.ID

	user.Token = s.doLogin(ctx, t, user.Email, user.Password)
	return user
}

func (s *IntegrationTestSuite) doLogin(ctx context.Context, t *testing.T, email, password string) string {
	t.Helper()

	loginReqJson, err := json.Marshal(auth.LoginRequest{
		Email:    email,
		Password: password,
	})
	require.NoError(t, err)

	req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/api/v0.1/login", serverEndpoint), bytes.NewBuffer(loginReqJson))
	require.NoError(t, err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NotEmpty(t, respBytes)

	var loginResp auth.LoginResponse
	require.NoError(t, json.Unmarshal(respBytes, &loginResp))
	require.NotEmpty(t, loginResp.Token)

	return loginResp.Token
}

// doAPIRequest fires an authorized request against the running server
// and returns the raw response.
func (s *IntegrationTestSuite) doAPIRequest(
	ctx context.Context, t *testing.T,
	method, path, token string,
	body []byte,
) *http.Response {
	t.Helper()

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewBuffer(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, serverEndpoint+path, bodyReader)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.httpClient.Do(req)
	require.NoError(t, err)
	return resp
}
