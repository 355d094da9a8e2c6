package chronicle

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// IngestionScope is the OAuth2 scope for the ingestion API.
const IngestionScope = "https://www.googleapis.com/auth/malachite-ingestion"

// NewHTTPClient returns an HTTP client for the ingestion API.
//
// serviceAccount is either the service account JSON itself or a path to it.
// When empty a plain client is returned, which is what local and test
// endpoints expect.
func NewHTTPClient(ctx context.Context, serviceAccount string, timeout time.Duration) (*http.Client, error) {
	if serviceAccount == "" {
		return &http.Client{Timeout: timeout}, nil
	}

	data, err := loadServiceAccount(serviceAccount)
	if err != nil {
		return nil, err
	}

	creds, err := google.CredentialsFromJSON(ctx, data, IngestionScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account: %w", err)
	}

	client := oauth2.NewClient(ctx, creds.TokenSource)
	client.Timeout = timeout
	return client, nil
}

func loadServiceAccount(v string) ([]byte, error) {
	if strings.HasPrefix(strings.TrimSpace(v), "{") {
		return []byte(v), nil
	}
	data, err := os.ReadFile(v)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return data, nil
}
