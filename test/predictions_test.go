package test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2beens/watchstats/internal/predictions"
)

// The text generation endpoint in the test config points to a port where
// nothing listens, so generating predictions always takes the rule-based
// fallback path. That is exactly what we want covered here, the model
// integration itself is unit tested against a stub server.
func (s *IntegrationTestSuite) TestPredictions() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	user := s.registerAndLogin(ctx, t)

	t.Run("not enough data", func(t *testing.T) {
		s.uploadCSV(ctx, t, user.Token, activityCSV(3))

		resp := s.doAPIRequest(ctx, t, "POST", "/api/v0.1/predictions/generate", user.Token, nil)
		defer resp.Body.Close()
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		respBytes, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(respBytes), "Please upload at least 7 days of activity data")
	})

	t.Run("generate via fallback", func(t *testing.T) {
		s.uploadCSV(ctx, t, user.Token, activityCSV(10))

		resp := s.doAPIRequest(ctx, t, "POST", "/api/v0.1/predictions/generate", user.Token, nil)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var generateResp predictions.GenerateResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&generateResp))
		assert.True(t, generateResp.Success)
		assert.Equal(t, "Predictions generated successfully", generateResp.Message)
		assert.Equal(t, len(predictions.AllTypes), generateResp.Count)
	})

	t.Run("list all", func(t *testing.T) {
		resp := s.doAPIRequest(ctx, t, "GET", "/api/v0.1/predictions", user.Token, nil)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var listResp predictions.ListResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&listResp))
		require.True(t, listResp.Success)
		require.Len(t, listResp.Data, len(predictions.AllTypes))

		seenTypes := make(map[predictions.Type]bool)
		for _, p := range listResp.Data {
			assert.Equal(t, user.ID, p.UserID)
			assert.NotEmpty(t, p.Text)
			seenTypes[p.Type] = true
		}
		assert.Len(t, seenTypes, len(predictions.AllTypes))
	})

	t.Run("list filtered by type", func(t *testing.T) {
		resp := s.doAPIRequest(ctx, t, "GET", "/api/v0.1/predictions?type=TREND", user.Token, nil)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var listResp predictions.ListResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&listResp))
		require.Len(t, listResp.Data, 1)
		assert.Equal(t, predictions.TypeTrend, listResp.Data[0].Type)
	})

	t.Run("regenerate replaces stored predictions", func(t *testing.T) {
		resp := s.doAPIRequest(ctx, t, "POST", "/api/v0.1/predictions/generate", user.Token, nil)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		listResp := s.doAPIRequest(ctx, t, "GET", "/api/v0.1/predictions", user.Token, nil)
		defer listResp.Body.Close()
		require.Equal(t, http.StatusOK, listResp.StatusCode)

		var list predictions.ListResponse
		require.NoError(t, json.NewDecoder(listResp.Body).Decode(&list))
		assert.Len(t, list.Data, len(predictions.AllTypes))
	})

	t.Run("unauthorized", func(t *testing.T) {
		resp := s.doAPIRequest(ctx, t, "POST", "/api/v0.1/predictions/generate", "", nil)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}
