// Package web implements the Web actor: a persistent net/http client
// carrying accumulated headers and cookies across requests within one
// scenario. Header/cookie actions are not requests themselves; they return
// a synthetic success the same way the single-language reference backend's
// execute_action does for HttpSetHeader/HttpSetCookie and friends.
package web

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/choreo-lang/choreo/pkg/world"
)

// Backend is not safe for concurrent use by multiple goroutines; each
// scenario owns its own instance.
type Backend struct {
	client  *http.Client
	headers map[string]string
}

func New() *Backend {
	return &Backend{
		client:  &http.Client{Timeout: 30 * time.Second},
		headers: make(map[string]string),
	}
}

func (b *Backend) SetHeader(key, value string) { b.headers[key] = value }

func (b *Backend) ClearHeader(key string) { delete(b.headers, key) }

func (b *Backend) ClearHeaders() { b.headers = make(map[string]string) }

// SetCookie appends key=value to the accumulated Cookie header, matching
// the reference backend's representation of cookies as a single header
// rather than a cookie jar.
func (b *Backend) SetCookie(key, value string) {
	entry := key + "=" + value
	if existing, ok := b.headers["Cookie"]; ok && existing != "" {
		b.headers["Cookie"] = existing + "; " + entry
	} else {
		b.headers["Cookie"] = entry
	}
}

// ClearCookie removes one key=value pair from the accumulated Cookie
// header, leaving the others intact.
func (b *Backend) ClearCookie(key string) {
	existing, ok := b.headers["Cookie"]
	if !ok {
		return
	}
	prefix := key + "="
	var kept []string
	for _, part := range strings.Split(existing, "; ") {
		if !strings.HasPrefix(strings.TrimSpace(part), prefix) {
			kept = append(kept, part)
		}
	}
	if len(kept) == 0 {
		delete(b.headers, "Cookie")
		return
	}
	b.headers["Cookie"] = strings.Join(kept, "; ")
}

func (b *Backend) ClearCookies() { delete(b.headers, "Cookie") }

func (b *Backend) Get(ctx context.Context, url string) (world.WebResponse, error) {
	return b.do(ctx, http.MethodGet, url, "")
}

func (b *Backend) Delete(ctx context.Context, url string) (world.WebResponse, error) {
	return b.do(ctx, http.MethodDelete, url, "")
}

func (b *Backend) Post(ctx context.Context, url, body string) (world.WebResponse, error) {
	return b.do(ctx, http.MethodPost, url, body)
}

func (b *Backend) Put(ctx context.Context, url, body string) (world.WebResponse, error) {
	return b.do(ctx, http.MethodPut, url, body)
}

func (b *Backend) Patch(ctx context.Context, url, body string) (world.WebResponse, error) {
	return b.do(ctx, http.MethodPatch, url, body)
}

func (b *Backend) do(ctx context.Context, method, url, body string) (world.WebResponse, error) {
	var reqBody io.Reader
	if body != "" {
		reqBody = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return world.WebResponse{}, err
	}
	for k, v := range b.headers {
		req.Header.Set(k, v)
	}
	if body != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := b.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return world.WebResponse{}, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return world.WebResponse{}, err
	}

	return world.WebResponse{
		Status:  resp.StatusCode,
		Headers: resp.Header,
		Body:    data,
		Elapsed: elapsed,
		Have:    true,
	}, nil
}
