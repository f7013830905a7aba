// Package graph implements the GraphClient and IdentityProvider ports
// against Microsoft Graph.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gregjones/httpcache"
	"golang.org/x/oauth2"

	"github.com/intunetools/intune-export/internal/domain/model"
	"github.com/intunetools/intune-export/internal/domain/port/driven"
)

const (
	defaultGraphBase   = "https://graph.microsoft.com"
	defaultPollEvery   = 5 * time.Second
	defaultJobTimeout  = 30 * time.Minute
	maxErrorBodyLength = 1 << 20
)

// Compile-time interface satisfaction check.
var _ driven.GraphClient = (*Client)(nil)

// Client implements the driven.GraphClient port against Microsoft Graph.
type Client struct {
	http *http.Client
	// download fetches export-job result URLs. Those URLs are
	// pre-authenticated blob links and reject an Authorization header, so
	// this client carries no token source.
	download *http.Client

	base       string
	pollEvery  time.Duration
	jobTimeout time.Duration
}

// NewClient creates a Graph client with the following transport stack:
//  1. oauth2 (bearer token injection, transparent refresh)
//  2. throttle (client-side 600/min and 10/s budgets, 429 Retry-After, retries)
//  3. httpcache (ETag-based conditional request caching)
func NewClient(src oauth2.TokenSource, jobTimeout time.Duration) *Client {
	if jobTimeout <= 0 {
		jobTimeout = defaultJobTimeout
	}

	throttled := newThrottleTransport(httpcache.NewMemoryCacheTransport())

	return &Client{
		http:       &http.Client{Transport: &oauth2.Transport{Base: throttled, Source: src}},
		download:   &http.Client{Transport: newThrottleTransport(nil), Timeout: 5 * time.Minute},
		base:       defaultGraphBase,
		pollEvery:  defaultPollEvery,
		jobTimeout: jobTimeout,
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base
// URL. This constructor is intended for testing, allowing injection of an
// httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) *Client {
	return &Client{
		http:       httpClient,
		download:   httpClient,
		base:       strings.TrimSuffix(baseURL, "/"),
		pollEvery:  defaultPollEvery,
		jobTimeout: defaultJobTimeout,
	}
}

// SignedInUser returns the /me identity of the delegated session.
func (c *Client) SignedInUser(ctx context.Context) (model.UserInfo, error) {
	resp, err := c.get(ctx, c.base+"/v1.0/me?$select=displayName,userPrincipalName")
	if err != nil {
		return model.UserInfo{}, err
	}
	defer resp.Body.Close()

	var out struct {
		DisplayName       string `json:"displayName"`
		UserPrincipalName string `json:"userPrincipalName"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return model.UserInfo{}, fmt.Errorf("decode /me response: %w", err)
	}

	return model.UserInfo{
		DisplayName:       out.DisplayName,
		UserPrincipalName: out.UserPrincipalName,
	}, nil
}

// get issues an authorized GET and maps failures onto the domain error types.
// The caller owns resp.Body on success.
func (c *Client) get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", url, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &model.NetworkError{Op: "GET " + url, Err: err}
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, apiError(resp)
	}
	return resp, nil
}

// apiError parses a Graph error body, preserving the service's own code and
// message verbatim.
func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLength))

	var parsed struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil &&
		(parsed.Error.Code != "" || parsed.Error.Message != "") {
		return &model.ApiError{
			StatusCode: resp.StatusCode,
			Code:       parsed.Error.Code,
			Message:    parsed.Error.Message,
		}
	}

	return &model.ApiError{
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(body)),
	}
}
