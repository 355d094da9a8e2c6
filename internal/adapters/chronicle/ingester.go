// Package chronicle sends log records to the Chronicle unstructured log
// ingestion API.
package chronicle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"

	"github.com/bft-labs/pubship/internal/domain"
	"github.com/bft-labs/pubship/internal/ports"
)

const (
	batchCreatePath = "/v2/unstructuredlogentries:batchCreate"

	// DefaultMaxRequestBytes is the encoded body size above which a call is
	// split in two.
	DefaultMaxRequestBytes = 1000000

	defaultHost = "malachiteingestion-pa.googleapis.com"
)

// Endpoint returns the regional ingestion base URL.
// An empty region or "us" selects the default US endpoint.
func Endpoint(region string) string {
	region = strings.ToLower(strings.TrimSpace(region))
	if region == "" || region == "us" {
		return "https://" + defaultHost
	}
	return "https://" + region + "-" + defaultHost
}

// Config configures the ingester.
type Config struct {
	// CustomerID is the Chronicle customer UUID
	CustomerID string

	// Region selects the regional endpoint when BaseURL is empty
	Region string

	// BaseURL overrides the regional endpoint
	BaseURL string

	// MaxRequestBytes is the split threshold for one request body
	MaxRequestBytes int

	// Compress gzips request bodies
	Compress bool
}

// Ingester implements ports.Ingester over HTTP.
type Ingester struct {
	client  ports.HTTPClient
	config  Config
	baseURL string
	logger  ports.Logger
}

var _ ports.Ingester = (*Ingester)(nil)

// NewIngester creates an ingester that sends with client.
func NewIngester(client ports.HTTPClient, config Config, logger ports.Logger) *Ingester {
	if config.MaxRequestBytes <= 0 {
		config.MaxRequestBytes = DefaultMaxRequestBytes
	}
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = Endpoint(config.Region)
	}
	return &Ingester{
		client:  client,
		config:  config,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

type entry struct {
	LogText string `json:"logText"`
}

type requestBody struct {
	CustomerID string  `json:"customerId"`
	LogType    string  `json:"logType"`
	Entries    []entry `json:"entries"`
}

// Ingest sends records tagged with dataType.
//
// When the encoded body is larger than MaxRequestBytes the records are split
// in half and each half is ingested the same way, all through the same
// client. A single record is always sent on its own even if oversized.
// The first failed request aborts the call; nothing is retried.
func (i *Ingester) Ingest(ctx context.Context, records []string, dataType string) error {
	if len(records) == 0 {
		return nil
	}

	body, err := i.encode(records, dataType)
	if err != nil {
		return err
	}

	if len(body) > i.config.MaxRequestBytes && len(records) > 1 {
		mid := len(records) / 2
		i.logger.Debug("splitting ingestion request",
			ports.Int("bytes", len(body)),
			ports.Int("records", len(records)),
		)
		if err := i.Ingest(ctx, records[:mid], dataType); err != nil {
			return err
		}
		return i.Ingest(ctx, records[mid:], dataType)
	}

	return i.send(ctx, body, len(records))
}

func (i *Ingester) encode(records []string, dataType string) ([]byte, error) {
	entries := make([]entry, len(records))
	for n, r := range records {
		entries[n] = entry{LogText: r}
	}
	body, err := json.Marshal(requestBody{
		CustomerID: i.config.CustomerID,
		LogType:    dataType,
		Entries:    entries,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal ingestion body: %w", err)
	}
	return body, nil
}

func (i *Ingester) send(ctx context.Context, body []byte, count int) error {
	payload := body
	if i.config.Compress {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(body); err != nil {
			return fmt.Errorf("compress body: %w", err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("compress body: %w", err)
		}
		payload = buf.Bytes()
	}

	url := i.baseURL + batchCreatePath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	if i.config.Compress {
		req.Header.Set("Content-Encoding", "gzip")
	}

	resp, err := i.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: send request: %v", domain.ErrIngest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return fmt.Errorf("%w: server returned %d: %s", domain.ErrIngest, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	// drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)

	i.logger.Debug("ingestion request accepted",
		ports.String("request_id", requestID),
		ports.Int("records", count),
		ports.Int("bytes", len(payload)),
	)
	return nil
}
