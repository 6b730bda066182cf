package shopee

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/thiagodapenhafernandes/appdoafiliado/internal/models"
)

// ErrInvalidCredentials marks a permanent API failure: the caller must not
// retry, and the integration is flagged as errored.
var ErrInvalidCredentials = errors.New("shopee api rejected the credentials")

const conversionsQuery = `
	query GetConversions($startDate: String!, $endDate: String!, $page: Int!, $limit: Int!) {
		conversions(startDate: $startDate, endDate: $endDate, page: $page, limit: $limit) {
			data {
				id
				orderId
				itemId
				productName
				category
				channel
				subId
				commissionAmount
				currency
				quantity
				clickTime
				conversionTime
				status
				purchaseValue
				commissionRate
			}
			pagination {
				currentPage
				totalPages
				totalItems
				hasNextPage
			}
		}
	}`

// ConversionPage is one page of raw conversions from the affiliate API.
type ConversionPage struct {
	Conversions []map[string]any
	HasNextPage bool
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlResponse struct {
	Data struct {
		Conversions struct {
			Data       []map[string]any `json:"data"`
			Pagination struct {
				CurrentPage int  `json:"currentPage"`
				TotalPages  int  `json:"totalPages"`
				TotalItems  int  `json:"totalItems"`
				HasNextPage bool `json:"hasNextPage"`
			} `json:"pagination"`
		} `json:"conversions"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// Client talks to the Shopee affiliate GraphQL API with signed requests,
// deferring to the shared rate limiter before every call.
type Client struct {
	httpClient  *http.Client
	integration *models.ShopeeIntegration
	limiter     *RateLimiter
	pageLimit   int
	maxRetries  int
}

func NewClient(integration *models.ShopeeIntegration, limiter *RateLimiter, pageLimit int) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		integration: integration,
		limiter:     limiter,
		pageLimit:   pageLimit,
		maxRetries:  3,
	}
}

// TestConnection issues a minimal query to verify endpoint and credentials.
func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.post(ctx, graphqlRequest{Query: "query { __typename }"})
	return err
}

// FetchConversions fetches one page of conversions for a date range.
func (c *Client) FetchConversions(ctx context.Context, startDate, endDate string, page int) (*ConversionPage, error) {
	body, err := c.post(ctx, graphqlRequest{
		Query: conversionsQuery,
		Variables: map[string]any{
			"startDate": startDate,
			"endDate":   endDate,
			"page":      page,
			"limit":     c.pageLimit,
		},
	})
	if err != nil {
		return nil, err
	}

	var parsed graphqlResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode conversions response: %w", err)
	}
	if len(parsed.Errors) > 0 {
		return nil, fmt.Errorf("shopee api error: %s", parsed.Errors[0].Message)
	}

	return &ConversionPage{
		Conversions: parsed.Data.Conversions.Data,
		HasNextPage: parsed.Data.Conversions.Pagination.HasNextPage,
	}, nil
}

// post signs and sends one GraphQL request, retrying transient failures with
// exponential backoff. Credential rejections return ErrInvalidCredentials
// without retrying.
func (c *Client) post(ctx context.Context, payload graphqlRequest) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt))) * time.Second
			slog.Info("retrying shopee api call",
				"integration_id", c.integration.ID, "attempt", attempt, "backoff_seconds", backoff.Seconds())
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx, c.integration.ID.String(),
				c.integration.RateLimitPerMinute, c.integration.RateLimitPerHour); err != nil {
				return nil, err
			}
		}

		response, err := c.send(ctx, body)
		if err == nil {
			return response, nil
		}
		if errors.Is(err, ErrInvalidCredentials) {
			return nil, err
		}

		lastErr = err
		slog.Warn("shopee api call failed",
			"integration_id", c.integration.ID, "attempt", attempt, "error", err)
	}

	return nil, fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr)
}

func (c *Client) send(ctx context.Context, body []byte) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.integration.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	timestamp := time.Now().Unix()
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("X-APP-ID", c.integration.AppID)
	request.Header.Set("X-TIMESTAMP", fmt.Sprintf("%d", timestamp))
	request.Header.Set("X-SIGNATURE", c.signature(body, timestamp))

	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	switch {
	case response.StatusCode == http.StatusUnauthorized || response.StatusCode == http.StatusForbidden:
		return nil, ErrInvalidCredentials
	case response.StatusCode == http.StatusTooManyRequests || response.StatusCode >= 500:
		return nil, fmt.Errorf("transient api failure: HTTP %d", response.StatusCode)
	case response.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status HTTP %d: %s", response.StatusCode, responseBody)
	}

	return responseBody, nil
}

// signature computes SHA256(app_id + timestamp + payload + secret), the
// scheme the affiliate open API expects.
func (c *Client) signature(payload []byte, timestamp int64) string {
	data := fmt.Sprintf("%s%d%s%s", c.integration.AppID, timestamp, payload, c.integration.Secret)
	digest := sha256.Sum256([]byte(data))
	return hex.EncodeToString(digest[:])
}
