package client

import (
	"context"
	"fmt"
	"net/http"
)

// Health performs a raw GET to /health and reports whether the server
// responded with 2xx. Useful for a CLI "ping" subcommand that doesn't fit
// the typed /cmd API.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/health", c.baseURL), nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return checkStatus(resp)
}
