// Package client provides a Go SDK for talking to a running VaporDB server.
//
// Big idea:
//
// Instead of writing raw HTTP requests everywhere,
// we wrap them inside a clean Go API.
//
// So instead of:
//
//	http.NewRequest(...)
//	json.Marshal(...)
//
// Users can simply call:
//
//	client.Set(ctx, "key", "value")
//	client.Get(ctx, "key")
//
// This is called a "client library" or "SDK".
//
// It hides:
//   - HTTP details
//   - JSON encoding/decoding
//   - Error handling
//
// And exposes a clean Go interface over VaporDB's single POST /cmd endpoint.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to one VaporDB server over its POST /cmd contract.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new Client. timeout protects against hanging forever: a
// networked caller should never call out without one.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// request is the wire shape every /cmd call sends; omitempty keeps a plain
// Get as small as {"cmd":"get","key":"k"}.
type request struct {
	Cmd     string `json:"cmd"`
	Key     string `json:"key"`
	Field   string `json:"field,omitempty"`
	Value   string `json:"value,omitempty"`
	Member  string `json:"member,omitempty"`
	Start   *uint  `json:"start,omitempty"`
	End     *uint  `json:"end,omitempty"`
	TTLSecs *int64 `json:"ttl_secs,omitempty"`
}

// Response is the wire shape every /cmd call returns.
type Response struct {
	Result *string `json:"result"`
	Error  *string `json:"error"`
}

// execute POSTs req to /cmd and decodes the response. A non-nil
// Response.Error from a 200 response is turned into a Go error, so a
// logical failure and a transport failure are both just "an error" to the
// caller.
func (c *Client) execute(ctx context.Context, req request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/cmd", c.baseURL), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("cmd request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if out.Error != nil {
		return nil, fmt.Errorf("%s", *out.Error)
	}
	return &out, nil
}

// Set stores key=value.
func (c *Client) Set(ctx context.Context, key, value string) error {
	_, err := c.execute(ctx, request{Cmd: "set", Key: key, Value: value})
	return err
}

// SetWithExpiration stores key=value with a time-to-live.
func (c *Client) SetWithExpiration(ctx context.Context, key, value string, ttl time.Duration) error {
	secs := int64(ttl.Seconds())
	_, err := c.execute(ctx, request{Cmd: "setwithexpiration", Key: key, Value: value, TTLSecs: &secs})
	return err
}

// Get retrieves the value stored at key, or ErrNotFound if it is absent.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	resp, err := c.execute(ctx, request{Cmd: "get", Key: key})
	if err != nil {
		return "", err
	}
	if resp.Result == nil {
		return "", ErrNotFound
	}
	return *resp.Result, nil
}

// Del removes key.
func (c *Client) Del(ctx context.Context, key string) error {
	_, err := c.execute(ctx, request{Cmd: "del", Key: key})
	return err
}

// HSet sets field=value inside the hash stored at key.
func (c *Client) HSet(ctx context.Context, key, field, value string) error {
	_, err := c.execute(ctx, request{Cmd: "hset", Key: key, Field: field, Value: value})
	return err
}

// HGet retrieves field from the hash stored at key.
func (c *Client) HGet(ctx context.Context, key, field string) (string, error) {
	resp, err := c.execute(ctx, request{Cmd: "hget", Key: key, Field: field})
	if err != nil {
		return "", err
	}
	if resp.Result == nil {
		return "", ErrNotFound
	}
	return *resp.Result, nil
}

// HDel removes field from the hash stored at key.
func (c *Client) HDel(ctx context.Context, key, field string) error {
	_, err := c.execute(ctx, request{Cmd: "hdel", Key: key, Field: field})
	return err
}

// LPush prepends value to the list stored at key.
func (c *Client) LPush(ctx context.Context, key, value string) error {
	_, err := c.execute(ctx, request{Cmd: "lpush", Key: key, Value: value})
	return err
}

// RPush appends value to the list stored at key.
func (c *Client) RPush(ctx context.Context, key, value string) error {
	_, err := c.execute(ctx, request{Cmd: "rpush", Key: key, Value: value})
	return err
}

// LPop removes and returns the first element of the list stored at key.
func (c *Client) LPop(ctx context.Context, key string) (string, error) {
	resp, err := c.execute(ctx, request{Cmd: "lpop", Key: key})
	if err != nil {
		return "", err
	}
	if resp.Result == nil {
		return "", ErrNotFound
	}
	return *resp.Result, nil
}

// RPop removes and returns the last element of the list stored at key.
func (c *Client) RPop(ctx context.Context, key string) (string, error) {
	resp, err := c.execute(ctx, request{Cmd: "rpop", Key: key})
	if err != nil {
		return "", err
	}
	if resp.Result == nil {
		return "", ErrNotFound
	}
	return *resp.Result, nil
}

// LRange returns elements [start, end] (inclusive, clamped) from the list
// stored at key, JSON-decoded from the server's array response.
func (c *Client) LRange(ctx context.Context, key string, start, end uint) ([]string, error) {
	resp, err := c.execute(ctx, request{Cmd: "lrange", Key: key, Start: &start, End: &end})
	if err != nil {
		return nil, err
	}
	if resp.Result == nil {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(*resp.Result), &out); err != nil {
		return nil, fmt.Errorf("decode lrange result: %w", err)
	}
	return out, nil
}

// SAdd adds member to the set stored at key.
func (c *Client) SAdd(ctx context.Context, key, member string) error {
	_, err := c.execute(ctx, request{Cmd: "sadd", Key: key, Member: member})
	return err
}

// SRem removes member from the set stored at key.
func (c *Client) SRem(ctx context.Context, key, member string) error {
	_, err := c.execute(ctx, request{Cmd: "srem", Key: key, Member: member})
	return err
}

// SMembers returns every member of the set stored at key.
func (c *Client) SMembers(ctx context.Context, key string) ([]string, error) {
	resp, err := c.execute(ctx, request{Cmd: "smembers", Key: key})
	if err != nil {
		return nil, err
	}
	if resp.Result == nil {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(*resp.Result), &out); err != nil {
		return nil, fmt.Errorf("decode smembers result: %w", err)
	}
	return out, nil
}

// ─── Errors ───────────────────────────────────────────────────────────────────

// ErrNotFound is returned when a key (or field) does not exist.
var ErrNotFound = fmt.Errorf("key not found")

// APIError carries the HTTP status and the error message from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

// checkStatus converts non-2xx HTTP responses into Go errors.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(resp.Body)
	var apiErr Response
	_ = json.Unmarshal(body, &apiErr)
	msg := ""
	if apiErr.Error != nil {
		msg = *apiErr.Error
	}
	if msg == "" {
		msg = string(body)
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}
