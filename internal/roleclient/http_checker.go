package roleclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const checkSessionPath = "/api/auth/check-session"

// HTTPChecker calls the status endpoint with the caller's cookies.
type HTTPChecker struct {
	BaseURL string
	Cookie  string
	Client  *http.Client
}

func NewHTTPChecker(baseURL, cookie string) *HTTPChecker {
	return &HTTPChecker{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Cookie:  cookie,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (h *HTTPChecker) CheckSession(ctx context.Context) (Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.BaseURL+checkSessionPath, nil)
	if err != nil {
		return Status{}, err
	}
	req.Header.Set("Accept", "application/json")
	if h.Cookie != "" {
		req.Header.Set("Cookie", h.Cookie)
	}

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return Status{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Status{}, fmt.Errorf("check session: unexpected status %d", resp.StatusCode)
	}

	var st Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return Status{}, fmt.Errorf("check session: decode: %w", err)
	}
	return st, nil
}
