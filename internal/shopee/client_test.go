package shopee

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/thiagodapenhafernandes/appdoafiliado/internal/models"
)

// ============================================================================
// TEST HELPERS
// ============================================================================

func testIntegration(endpoint string) *models.ShopeeIntegration {
	return &models.ShopeeIntegration{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		AppID:    "app-123",
		Secret:   "secret-xyz",
		Endpoint: endpoint,
		Active:   true,
	}
}

// ============================================================================
// TEST SUITE 1: REQUEST SIGNING
// ============================================================================

func TestSignature_Scheme(t *testing.T) {
	client := NewClient(testIntegration("http://example.invalid"), nil, 100)
	payload := []byte(`{"query":"test"}`)
	timestamp := int64(1741612200)

	expectedInput := fmt.Sprintf("app-123%d%ssecret-xyz", timestamp, payload)
	digest := sha256.Sum256([]byte(expectedInput))
	expected := hex.EncodeToString(digest[:])

	assert.Equal(t, expected, client.signature(payload, timestamp))
}

func TestSend_SetsAuthHeaders(t *testing.T) {
	var gotAppID, gotTimestamp, gotSignature string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAppID = r.Header.Get("X-APP-ID")
		gotTimestamp = r.Header.Get("X-TIMESTAMP")
		gotSignature = r.Header.Get("X-SIGNATURE")
		w.Write([]byte(`{"data":{}}`))
	}))
	defer server.Close()

	client := NewClient(testIntegration(server.URL), nil, 100)
	err := client.TestConnection(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, "app-123", gotAppID)
	assert.NotEmpty(t, gotTimestamp)
	assert.Len(t, gotSignature, 64, "signature should be a hex sha256 digest")
}

// ============================================================================
// TEST SUITE 2: ERROR CLASSIFICATION
// ============================================================================

func TestPost_UnauthorizedIsPermanent(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(testIntegration(server.URL), nil, 100)
	err := client.TestConnection(context.Background())

	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, 1, calls, "credential rejections must not be retried")
}

func TestFetchConversions_ParsesPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"data": {
				"conversions": {
					"data": [{"id": "CONV-1"}, {"id": "CONV-2"}],
					"pagination": {"currentPage": 1, "totalPages": 2, "totalItems": 150, "hasNextPage": true}
				}
			}
		}`))
	}))
	defer server.Close()

	client := NewClient(testIntegration(server.URL), nil, 100)
	page, err := client.FetchConversions(context.Background(), "2025-03-01", "2025-03-10", 1)

	assert.NoError(t, err)
	assert.Len(t, page.Conversions, 2)
	assert.True(t, page.HasNextPage)
}

func TestFetchConversions_GraphQLErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors": [{"message": "date range too wide"}]}`))
	}))
	defer server.Close()

	client := NewClient(testIntegration(server.URL), nil, 100)
	_, err := client.FetchConversions(context.Background(), "2020-01-01", "2025-03-10", 1)

	assert.ErrorContains(t, err, "date range too wide")
}
