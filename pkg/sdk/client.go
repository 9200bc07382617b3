// Package sdk provides the client-side library for localcrm.
// It supports both a remote daemon over HTTP and an embedded in-process store.
package sdk

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/celerix-dev/localcrm/pkg/schema"
)

// Client is a remote client for the localcrm HTTP API.
// It implements the CRM interface.
type Client struct {
	baseURL string
	http    *http.Client
}

// Connect returns a client for the daemon at addr and checks that it answers.
// addr may omit the scheme, in which case http is assumed.
func Connect(addr string) (*Client, error) {
	c := NewClient(addr, nil)
	if err := c.Ping(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", c.baseURL, err)
	}
	return c, nil
}

// NewClient builds a client without contacting the daemon. A nil httpClient
// selects one with a 30 second timeout.
func NewClient(addr string, httpClient *http.Client) *Client {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(addr, "/"), http: httpClient}
}

// Internal helper for HTTP round trips. Requests other than POST are
// idempotent on the server and are retried on transport errors.
func (c *Client) do(method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return err
		}
	}

	attempts := 3
	if method == http.MethodPost {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		var req *http.Request
		req, err = http.NewRequest(method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		var resp *http.Response
		resp, err = c.http.Do(req)
		if err == nil {
			return decodeResponse(resp, out)
		}

		fmt.Fprintf(os.Stderr, "[localcrm SDK] Attempt %d failed: %v\n", i+1, err)
		if i+1 < attempts {
			time.Sleep(time.Duration((i+1)*200) * time.Millisecond)
		}
	}
	return fmt.Errorf("failed after %d attempts. last error: %w", attempts, err)
}

func decodeResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var body struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		msg := body.Message
		if msg == "" {
			msg = body.Error
		}
		if msg == "" {
			msg = resp.Status
		}
		switch resp.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", ErrNotFound, msg)
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %s", ErrUnauthorized, msg)
		}
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, msg)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func collectionPath(collection string, parts ...string) string {
	p := "/api/" + url.PathEscape(collection)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

func (c *Client) List(collection string) ([]schema.Record, error) {
	var list []schema.Record
	err := c.do(http.MethodGet, collectionPath(collection), nil, &list)
	return list, err
}

// Get lists the collection and filters it; the API has no single-get route
// for every collection.
func (c *Client) Get(collection, id string) (schema.Record, error) {
	list, err := c.List(collection)
	if err != nil {
		return nil, err
	}
	for _, r := range list {
		if r.ID() == id {
			return r, nil
		}
	}
	return nil, ErrNotFound
}

func (c *Client) Activities(leadID string) ([]schema.Record, error) {
	path := collectionPath(schema.Activities)
	if leadID != "" {
		path = collectionPath(schema.Activities, leadID)
	}
	var list []schema.Record
	err := c.do(http.MethodGet, path, nil, &list)
	return list, err
}

func (c *Client) Save(collection string, rec schema.Record) (schema.Record, error) {
	var out map[string]json.RawMessage
	if err := c.do(http.MethodPost, collectionPath(collection), rec, &out); err != nil {
		return nil, err
	}
	return envelopeRecord(out, collection)
}

func (c *Client) Update(collection, id string, patch schema.Record) (schema.Record, error) {
	var out map[string]json.RawMessage
	if err := c.do(http.MethodPut, collectionPath(collection, id), patch, &out); err != nil {
		return nil, err
	}
	return envelopeRecord(out, collection)
}

func (c *Client) Delete(collection, id string) error {
	return c.do(http.MethodDelete, collectionPath(collection, id), nil, nil)
}

func (c *Client) Login(email, password string) (schema.User, error) {
	var out struct {
		User schema.User `json:"user"`
	}
	in := map[string]string{"email": email, "password": password}
	if err := c.do(http.MethodPost, "/api/login", in, &out); err != nil {
		return schema.User{}, err
	}
	return out.User, nil
}

// Ping checks the daemon health endpoint.
func (c *Client) Ping() error {
	return c.do(http.MethodGet, "/api/health", nil, nil)
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// envelopeRecord extracts the record from {"success": true, "<singular>": {...}}.
func envelopeRecord(out map[string]json.RawMessage, collection string) (schema.Record, error) {
	raw, ok := out[schema.Singular(collection)]
	if !ok {
		return nil, fmt.Errorf("response for %s has no %q field", collection, schema.Singular(collection))
	}
	var rec schema.Record
	err := json.Unmarshal(raw, &rec)
	return rec, err
}

// --- Generics Support ---

// Decode converts a record into a typed view such as schema.Lead.
func Decode[T any](rec schema.Record) (T, error) {
	var target T
	data, err := json.Marshal(rec)
	if err != nil {
		return target, err
	}
	err = json.Unmarshal(data, &target)
	return target, err
}

// GetAs fetches a record and decodes it into T.
func GetAs[T any](r Reader, collection, id string) (T, error) {
	rec, err := r.Get(collection, id)
	if err != nil {
		var zero T
		return zero, err
	}
	return Decode[T](rec)
}

// ListAs lists a collection and decodes every record into T.
func ListAs[T any](r Reader, collection string) ([]T, error) {
	records, err := r.List(collection)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(records))
	for _, rec := range records {
		v, err := Decode[T](rec)
		if err != nil {
			return nil, fmt.Errorf("decode %s record %s: %w", collection, rec.ID(), err)
		}
		out = append(out, v)
	}
	return out, nil
}
