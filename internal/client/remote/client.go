// Package remote is the HTTP client for a sigfeed server. It speaks the
// REST surface of the httpapi package and presents listings and fetches
// through the syncx contracts, so pull pipelines work identically against
// local and remote stores.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/sigfeed/internal/common"
	"github.com/dmitrijs2005/sigfeed/internal/identity"
	"github.com/dmitrijs2005/sigfeed/internal/syncx"
)

// PutOutcome reports a successful publication.
type PutOutcome struct {
	Accepted bool // false means the server already had the item
	Seq      int64
}

// Client talks to one sigfeed server. Transient failures (network errors,
// 5xx) are retried with backoff; client errors come back immediately as
// the matching sentinel.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

type putResponse struct {
	Status string `json:"status"`
	Seq    int64  `json:"seq"`
}

type entryJSON struct {
	UserID         string `json:"userId"`
	Signature      string `json:"signature"`
	TimestampMsUTC int64  `json:"timestampMsUtc"`
	Seq            int64  `json:"seq"`
}

type listResponse struct {
	Items  []entryJSON `json:"items"`
	Cursor string      `json:"cursor"`
}

type displayNameResponse struct {
	DisplayName string `json:"displayName"`
}

// PutItem publishes canonical item bytes under their content address.
func (c *Client) PutItem(ctx context.Context, user identity.UserID, sig identity.Signature, raw []byte) (PutOutcome, error) {
	u := c.itemURL(user, sig)

	body, status, err := c.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/octet-stream")
		return req, nil
	})
	if err != nil {
		return PutOutcome{}, err
	}

	var resp putResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return PutOutcome{}, fmt.Errorf("parsing put response: %w", err)
	}
	return PutOutcome{Accepted: status == http.StatusCreated, Seq: resp.Seq}, nil
}

// FetchItem retrieves an item's canonical bytes. Implements syncx.Fetcher.
func (c *Client) FetchItem(ctx context.Context, user identity.UserID, sig identity.Signature) ([]byte, error) {
	body, _, err := c.get(ctx, c.itemURL(user, sig))
	return body, err
}

// DisplayName resolves a user's current display name.
func (c *Client) DisplayName(ctx context.Context, user identity.UserID) (string, error) {
	body, _, err := c.get(ctx, c.baseURL+"/u/"+user.String()+"/profile/displayName")
	if err != nil {
		return "", err
	}
	var resp displayNameResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("parsing display name response: %w", err)
	}
	return resp.DisplayName, nil
}

// UserItems enumerates one user's items, newest first.
func (c *Client) UserItems(user identity.UserID) syncx.Source {
	return syncx.SourceFunc(func(ctx context.Context, cursor syncx.Cursor, limit int) (syncx.Page, error) {
		return c.listPage(ctx, c.baseURL+"/u/"+user.String()+"/items", cursor, limit)
	})
}

// AllItems enumerates the server's global feed in insertion order.
func (c *Client) AllItems() syncx.Source {
	return syncx.SourceFunc(func(ctx context.Context, cursor syncx.Cursor, limit int) (syncx.Page, error) {
		return c.listPage(ctx, c.baseURL+"/items", cursor, limit)
	})
}

func (c *Client) listPage(ctx context.Context, base string, cursor syncx.Cursor, limit int) (syncx.Page, error) {
	q := url.Values{}
	if !cursor.IsZero() {
		q.Set("cursor", string(cursor))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	u := base
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	body, _, err := c.get(ctx, u)
	if err != nil {
		return syncx.Page{}, err
	}

	var resp listResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return syncx.Page{}, fmt.Errorf("parsing list response: %w", err)
	}

	page := syncx.Page{Next: syncx.Cursor(resp.Cursor)}
	for _, e := range resp.Items {
		user, err := identity.DecodeUserID(e.UserID)
		if err != nil {
			return syncx.Page{}, fmt.Errorf("server returned bad user id %q: %w", e.UserID, err)
		}
		sig, err := identity.DecodeSignature(e.Signature)
		if err != nil {
			return syncx.Page{}, fmt.Errorf("server returned bad signature %q: %w", e.Signature, err)
		}
		page.Entries = append(page.Entries, syncx.Entry{
			UserID:         user,
			Signature:      sig,
			TimestampMsUTC: e.TimestampMsUTC,
			Seq:            e.Seq,
		})
	}
	return page, nil
}

func (c *Client) itemURL(user identity.UserID, sig identity.Signature) string {
	return c.baseURL + "/u/" + user.String() + "/i/" + sig.String()
}

func (c *Client) get(ctx context.Context, u string) ([]byte, int, error) {
	return c.do(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	})
}

// do issues the request, retrying network errors and 5xx responses with
// fibonacci backoff. 4xx responses map to sentinels and never retry.
func (c *Client) do(ctx context.Context, build func() (*http.Request, error)) ([]byte, int, error) {
	var body []byte
	var status int

	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(200*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := build()
		if err != nil {
			return err
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(err)
		}
		status = resp.StatusCode

		if status >= http.StatusInternalServerError {
			return retry.RetryableError(statusError(status))
		}
		if status >= http.StatusBadRequest {
			return statusError(status)
		}
		return nil
	})
	if err != nil {
		return nil, status, err
	}
	return body, status, nil
}

func statusError(status int) error {
	switch status {
	case http.StatusBadRequest:
		return common.ErrMalformed
	case http.StatusUnauthorized:
		return common.ErrInvalidSignature
	case http.StatusNotFound:
		return common.ErrNotFound
	case http.StatusConflict:
		return common.ErrContentConflict
	case http.StatusServiceUnavailable:
		return common.ErrStorageUnavailable
	default:
		return fmt.Errorf("server returned status %d", status)
	}
}
