package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2beens/watchstats/internal/auth"
)

func (s *IntegrationTestSuite) TestLogin() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	user := s.registerAndLogin(ctx, t)

	cases := map[string]struct {
		loginReq           auth.LoginRequest
		expectedStatusCode int
		assertFunc         func(resp *http.Response)
	}{
		"good creds": {
			loginReq: auth.LoginRequest{
				Email:    user.Email,
				Password: user.Password,
			},
			expectedStatusCode: http.StatusOK,
			assertFunc: func(resp *http.Response) {
				respBytes, err := io.ReadAll(resp.Body)
				require.NoError(t, err)

				var loginResp auth.LoginResponse
				require.NoError(t, json.Unmarshal(respBytes, &loginResp))
				assert.True(t, loginResp.Success)
				assert.NotEmpty(t, loginResp.Token)
				require.NotNil(t, loginResp.User)
				assert.Equal(t, user.Email, loginResp.User.Email)
			},
		},
		"good creds, then logout": {
			loginReq: auth.LoginRequest{
				Email:    user.Email,
				Password: user.Password,
			},
			expectedStatusCode: http.StatusOK,
			assertFunc: func(resp *http.Response) {
				respBytes, err := io.ReadAll(resp.Body)
				require.NoError(t, err)

				var loginResp auth.LoginResponse
				require.NoError(t, json.Unmarshal(respBytes, &loginResp))
				assert.NotEmpty(t, loginResp.Token)

				logoutResp := s.doAPIRequest(ctx, t, "POST", "/api/v0.1/logout", loginResp.Token, nil)
				defer logoutResp.Body.Close()
				assert.Equal(t, http.StatusOK, logoutResp.StatusCode)

				logoutRespBytes, err := io.ReadAll(logoutResp.Body)
				require.NoError(t, err)
				assert.JSONEq(t, `{"success":true,"message":"Logged out successfully"}`, string(logoutRespBytes))

				// the session is gone now, the same token no longer works
				summaryResp := s.doAPIRequest(ctx, t, "GET", "/api/v0.1/activity/summary", loginResp.Token, nil)
				defer summaryResp.Body.Close()
				assert.Equal(t, http.StatusUnauthorized, summaryResp.StatusCode)
			},
		},
		"bad password": {
			loginReq: auth.LoginRequest{
				Email:    user.Email,
				Password: "bad-password",
			},
			expectedStatusCode: http.StatusUnauthorized,
			assertFunc: func(resp *http.Response) {
				respBytes, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				respString := strings.TrimSpace(string(respBytes))
				assert.Equal(t, "error, email or password incorrect", respString)
			},
		},
		"unknown email": {
			loginReq: auth.LoginRequest{
				Email:    "who.is.this@example.org",
				Password: user.Password,
			},
			expectedStatusCode: http.StatusUnauthorized,
			assertFunc: func(resp *http.Response) {
				respBytes, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				respString := strings.TrimSpace(string(respBytes))
				assert.Equal(t, "error, email or password incorrect", respString)
			},
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			loginReqJson, err := json.Marshal(tc.loginReq)
			require.NoError(t, err)

			req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/api/v0.1/login", serverEndpoint), bytes.NewBuffer(loginReqJson))
			require.NoError(t, err)
			req.Header.Set("User-Agent", "test-agent")
			req.Header.Set("Content-Type", "application/json")

			resp, err := s.httpClient.Do(req)
			require.NoError(t, err)
			require.Equal(t, tc.expectedStatusCode, resp.StatusCode)
			defer resp.Body.Close()

			tc.assertFunc(resp)
		})
	}

	t.Run("rate limiting", func(t *testing.T) {
		// simulate login requests brute force attack
		loginReqJson, err := json.Marshal(auth.LoginRequest{
			Email:    "brute.force@example.org",
			Password: "test-pass",
		})
		require.NoError(t, err)

		// config is set to allow 10 auth attempts per minute, so after 10th attempt we should get 429
		// but first, do a redis cleanup
		require.NoError(t, s.redisDataCleanup(ctx))

		for i := 1; i <= 15; i++ {
			req, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/api/v0.1/login", serverEndpoint), bytes.NewBuffer(loginReqJson))
			require.NoError(t, err)
			req.Header.Set("User-Agent", "test-agent")
			req.Header.Set("Content-Type", "application/json")

			resp, err := s.httpClient.Do(req)
			require.NoError(t, err)

			if i <= 10 {
				require.Equal(t, http.StatusUnauthorized, resp.StatusCode, "iteration: %d", i)
				assert.Empty(t, resp.Header.Get("Retry-After"), "iteration: %d", i)
			} else {
				require.Equal(t, http.StatusTooManyRequests, resp.StatusCode, "iteration: %d", i)
				retryAfter, err := strconv.ParseFloat(resp.Header.Get("Retry-After"), 64)
				require.NoError(t, err, "iteration: %d", i)
				assert.True(t, retryAfter > 0, "iteration: %d", i)
			}

			assert.NoError(t, resp.Body.Close())
		}

		require.NoError(t, s.redisDataCleanup(ctx))
	})
}

func (s *IntegrationTestSuite) TestRegister() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	user := s.registerAndLogin(ctx, t)

	t.Run("email already taken", func(t *testing.T) {
		registerReqJson, err := json.Marshal(auth.RegisterRequest{
			FullName: "Another Name",
			Email:    user.Email,
			Password: "another-pass-123",
		})
		require.NoError(t, err)

		resp := s.doAPIRequest(ctx, t, "POST", "/api/v0.1/register", "", registerReqJson)
		defer resp.Body.Close()
		require.Equal(t, http.StatusConflict, resp.StatusCode)

		respBytes, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "error, email already taken", strings.TrimSpace(string(respBytes)))
	})

	t.Run("missing fields", func(t *testing.T) {
		registerReqJson, err := json.Marshal(auth.RegisterRequest{
			Email: "incomplete@example.org",
		})
		require.NoError(t, err)

		resp := s.doAPIRequest(ctx, t, "POST", "/api/v0.1/register", "", registerReqJson)
		defer resp.Body.Close()
		require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})
}
