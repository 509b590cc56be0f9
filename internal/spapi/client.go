// Package spapi is the Selling Partner API client: OAuth2 refresh-token
// exchange, client-side throttling, and the order/finance/report endpoints
// the sync pipeline consumes.
package spapi

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ilhanselcuk/sellergenix-sub005/config"
)

// SettlementReportType is the flat-file settlement report the fee
// reconciliation consumes. Amazon schedules these itself; they can only be
// listed and downloaded, never requested.
const SettlementReportType = "GET_V2_SETTLEMENT_REPORT_DATA_FLAT_FILE_V2"

// Client is an SP-API client with rate limiting and token refresh.
type Client struct {
	cfg         config.SPAPIConfig
	httpClient  *http.Client
	tokens      *tokenSource
	rateLimiter *TokenBucketRateLimiter
}

// NewClient creates a new SP-API client.
// Default: 0.5 requests per second with a burst of 10, conservative against
// the order endpoint restore rates.
func NewClient(cfg config.SPAPIConfig) *Client {
	return &Client{
		cfg:         cfg,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		tokens:      newTokenSource(cfg),
		rateLimiter: NewTokenBucketRateLimiter(10, 0.5),
	}
}

// NewClientForSeller creates a client bound to one seller account's refresh
// token. The LWA application credentials come from cfg; the token decides
// whose orders the client sees.
func NewClientForSeller(cfg config.SPAPIConfig, refreshToken string) *Client {
	cfg.RefreshToken = refreshToken
	return NewClient(cfg)
}

// RefreshToken exposes which seller token the client is bound to.
func (c *Client) RefreshToken() string {
	return c.cfg.RefreshToken
}

// doRequest performs a GET against the API with rate limiting and retry logic
func (c *Client) doRequest(path string, query url.Values) ([]byte, error) {
	maxRetries := 3
	var lastError error

	endpoint := c.cfg.Endpoint + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		// Wait for rate limiter
		c.rateLimiter.Wait()

		accessToken, err := c.tokens.AccessToken()
		if err != nil {
			return nil, fmt.Errorf("failed to obtain access token: %w", err)
		}

		req, err := http.NewRequest("GET", endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("x-amz-access-token", accessToken)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastError = err
			time.Sleep(time.Duration(attempt+1) * time.Second)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastError = readErr
			time.Sleep(time.Duration(attempt+1) * time.Second)
			continue
		}

		// Handle throttling (429): back off and retry
		if resp.StatusCode == http.StatusTooManyRequests {
			lastError = fmt.Errorf("throttled by API: %s", string(body))
			time.Sleep(time.Duration(5*(attempt+1)) * time.Second)
			continue
		}

		if resp.StatusCode >= 500 {
			lastError = fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
			time.Sleep(time.Duration(attempt+1) * time.Second)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
		}

		return body, nil
	}

	return nil, fmt.Errorf("max retries exceeded, last error: %w", lastError)
}

// ListOrders fetches all orders created in [createdAfter, createdBefore),
// following NextToken pagination.
func (c *Client) ListOrders(createdAfter, createdBefore time.Time) ([]Order, error) {
	var orders []Order
	nextToken := ""

	for {
		query := url.Values{}
		query.Set("MarketplaceIds", c.cfg.MarketplaceID)
		if nextToken != "" {
			query.Set("NextToken", nextToken)
		} else {
			query.Set("CreatedAfter", createdAfter.UTC().Format(time.RFC3339))
			query.Set("CreatedBefore", createdBefore.UTC().Format(time.RFC3339))
		}

		body, err := c.doRequest("/orders/v0/orders", query)
		if err != nil {
			return nil, err
		}

		var response struct {
			Payload ListOrdersPayload `json:"payload"`
		}
		if err := json.Unmarshal(body, &response); err != nil {
			return nil, fmt.Errorf("failed to parse orders response: %w", err)
		}

		orders = append(orders, response.Payload.Orders...)

		nextToken = response.Payload.NextToken
		if nextToken == "" {
			return orders, nil
		}
	}
}

// GetOrder fetches a single order by its marketplace order ID.
func (c *Client) GetOrder(amazonOrderID string) (*Order, error) {
	body, err := c.doRequest("/orders/v0/orders/"+amazonOrderID, nil)
	if err != nil {
		return nil, err
	}

	var response struct {
		Payload Order `json:"payload"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse order response: %w", err)
	}
	if response.Payload.AmazonOrderID == "" {
		return nil, fmt.Errorf("order %s not found", amazonOrderID)
	}
	return &response.Payload, nil
}

// ListOrderItems fetches all line items for an order, following NextToken
// pagination.
func (c *Client) ListOrderItems(amazonOrderID string) ([]OrderItem, error) {
	var items []OrderItem
	nextToken := ""

	for {
		query := url.Values{}
		if nextToken != "" {
			query.Set("NextToken", nextToken)
		}

		body, err := c.doRequest("/orders/v0/orders/"+amazonOrderID+"/orderItems", query)
		if err != nil {
			return nil, err
		}

		var response struct {
			Payload ListOrderItemsPayload `json:"payload"`
		}
		if err := json.Unmarshal(body, &response); err != nil {
			return nil, fmt.Errorf("failed to parse order items response: %w", err)
		}

		items = append(items, response.Payload.OrderItems...)

		nextToken = response.Payload.NextToken
		if nextToken == "" {
			return items, nil
		}
	}
}

// ListFinancialEventsByOrder fetches the fee events posted for one order.
func (c *Client) ListFinancialEventsByOrder(amazonOrderID string) (*FinancialEvents, error) {
	body, err := c.doRequest("/finances/v0/orders/"+amazonOrderID+"/financialEvents", nil)
	if err != nil {
		return nil, err
	}

	var response struct {
		Payload struct {
			FinancialEvents FinancialEvents `json:"FinancialEvents"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse financial events response: %w", err)
	}
	return &response.Payload.FinancialEvents, nil
}

// ListSettlementReports lists finished settlement reports created since the
// given time.
func (c *Client) ListSettlementReports(createdSince time.Time) ([]Report, error) {
	query := url.Values{}
	query.Set("reportTypes", SettlementReportType)
	query.Set("processingStatuses", "DONE")
	query.Set("createdSince", createdSince.UTC().Format(time.RFC3339))

	body, err := c.doRequest("/reports/2021-06-30/reports", query)
	if err != nil {
		return nil, err
	}

	var response struct {
		Reports []Report `json:"reports"`
	}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse reports response: %w", err)
	}
	return response.Reports, nil
}

// GetReportDocument resolves a report document ID to its download location.
func (c *Client) GetReportDocument(reportDocumentID string) (*ReportDocument, error) {
	body, err := c.doRequest("/reports/2021-06-30/documents/"+reportDocumentID, nil)
	if err != nil {
		return nil, err
	}

	var doc ReportDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse report document response: %w", err)
	}
	if doc.URL == "" {
		return nil, fmt.Errorf("report document %s has no download URL", reportDocumentID)
	}
	return &doc, nil
}

// DownloadReportDocument downloads a report document's content, transparently
// decompressing when the document is gzipped.
func (c *Client) DownloadReportDocument(doc *ReportDocument) ([]byte, error) {
	resp, err := c.httpClient.Get(doc.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to download report document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("report download failed with status %d: %s", resp.StatusCode, string(body))
	}

	var reader io.Reader = resp.Body
	if strings.EqualFold(doc.CompressionAlgorithm, "GZIP") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	}

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read report document: %w", err)
	}
	return content, nil
}

// GetRateLimiterStatus returns the current rate limiter status
func (c *Client) GetRateLimiterStatus() float64 {
	return c.rateLimiter.GetAvailableTokens()
}
