package access

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	v1 "github.com/verdict-lab/project-verdict/internal/api/v1"
	httperr "github.com/verdict-lab/project-verdict/internal/core/errors"
	"github.com/verdict-lab/project-verdict/internal/core/feature"
	"github.com/verdict-lab/project-verdict/internal/grant"
	"github.com/verdict-lab/project-verdict/internal/observability"
	"github.com/verdict-lab/project-verdict/internal/policy"
)

type noopNotifier struct{}

func (noopNotifier) Publish(v1.EventEnvelope) {}

func newGateRouter(t *testing.T) (*gin.Engine, *grant.Service, *feature.Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	stores, err := policy.Build(policy.Default())
	require.NoError(t, err)

	grants := grant.NewService(stores.Features, noopNotifier{}, grant.Config{}, observability.NewDisabled())
	svc := NewService(stores.Features, grants)

	r := gin.New()
	svc.RegisterRoutes(r)
	return r, grants, stores.Features
}

func getGate(r *gin.Engine, path, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if userID != "" {
		req.Header.Set(HeaderUserID, userID)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestRootHandler(t *testing.T) {
	r, _, _ := newGateRouter(t)

	resp := getGate(r, "/", "")

	require.Equal(t, http.StatusOK, resp.Code)
	var result map[string]string
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	require.Equal(t, "World", result["Hello"])
}

func TestGateHandler_DefaultsToGranted(t *testing.T) {
	r, _, _ := newGateRouter(t)

	resp := getGate(r, "/canmessage", "user-1")

	require.Equal(t, http.StatusOK, resp.Code)
	var result struct {
		UserID   string `json:"user_id"`
		Feature  string `json:"feature"`
		HasGrant bool   `json:"has_grant"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	require.Equal(t, "user-1", result.UserID)
	require.Equal(t, "message", result.Feature)
	require.True(t, result.HasGrant)
}

func TestGateHandler_ReflectsRevocation(t *testing.T) {
	r, grants, features := newGateRouter(t)

	purchase, err := features.ByName("purchase")
	require.NoError(t, err)
	grants.Revoke("user-1", purchase)

	denied := getGate(r, "/canpurchase", "user-1")
	require.Equal(t, http.StatusOK, denied.Code)
	var result struct {
		HasGrant bool `json:"has_grant"`
	}
	require.NoError(t, json.Unmarshal(denied.Body.Bytes(), &result))
	require.False(t, result.HasGrant)

	// Other users and other features stay granted.
	allowed := getGate(r, "/canpurchase", "user-2")
	require.NoError(t, json.Unmarshal(allowed.Body.Bytes(), &result))
	require.True(t, result.HasGrant)
}

func TestGateHandler_RejectsMalformedGatePaths(t *testing.T) {
	r, _, _ := newGateRouter(t)

	for _, path := range []string{"/purchase", "/canPurchase", "/can", "/canaaaaaaaaaaaaaaaaa"} {
		resp := getGate(r, path, "user-1")
		require.Equal(t, http.StatusBadRequest, resp.Code, "path %s", path)

		var errResp httperr.ErrorResponse
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &errResp))
		require.Equal(t, httperr.HttpInvalidRequestError, errResp.Code, "path %s", path)
	}
}

func TestGateHandler_RequiresUserHeader(t *testing.T) {
	r, _, _ := newGateRouter(t)

	resp := getGate(r, "/canmessage", "")

	require.Equal(t, http.StatusBadRequest, resp.Code)
	var errResp httperr.ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &errResp))
	require.Equal(t, httperr.HttpInvalidRequestError, errResp.Code)
}

func TestGateHandler_UnknownFeature(t *testing.T) {
	r, _, _ := newGateRouter(t)

	resp := getGate(r, "/canrefund", "user-1")

	require.Equal(t, http.StatusNotFound, resp.Code)
	var errResp httperr.ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &errResp))
	require.Equal(t, httperr.HttpUnknownFeatureError, errResp.Code)
}

func TestGateHandler_HeaderCheckedBeforeFeatureLookup(t *testing.T) {
	r, _, _ := newGateRouter(t)

	resp := getGate(r, "/canrefund", "")

	require.Equal(t, http.StatusBadRequest, resp.Code)
}
