// Package upstream implements the pooled Upstream Client of spec §4.D: one
// client bound to a credential, talking to the remote social API, with the
// retry and error-mapping policy of spec §7.
package upstream

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/valstan/setka/internal/core"
)

// Pool limits from spec §4.D.
const (
	MaxConnsTotal   = 10
	MaxConnsPerHost = 5
	IdleTTL         = 300 * time.Second
	DNSCacheTTL     = 300 * time.Second
	RequestTimeout  = 30 * time.Second

	retryBaseDelay = 2 * time.Second
	retryMaxDelay  = 10 * time.Second
	maxAttempts    = 3
	rateLimitWait  = time.Second
)

// APIVersion is the fixed API version string attached to every request.
const APIVersion = "5.199"

// Transporter is the subset of *http.Client a Client needs, so tests can
// substitute a fake round-tripper.
type Transporter interface {
	Do(req *http.Request) (*http.Response, error)
}

// Decoder turns a raw HTTP response body into domain posts/entities. It is
// the sole place raw upstream JSON is inspected (spec §9: "Duck-typed post
// objects in the source" — downstream code never sees raw payloads).
type Decoder interface {
	DecodeWallPosts(body []byte) ([]core.Post, error)
	DecodePost(body []byte) (core.Post, error)
	DecodeError(body []byte, statusCode int) error
}

// NewTransport builds the pooled *http.Transport: per-host <= 5
// connections, at most 10 idle connections kept in total, 300s idle TTL,
// and a 300s DNS-cache-equivalent. It sets no cap on the total number of
// open connections across hosts (Go's http.Transport does not expose a DNS cache
// directly; IdleConnTimeout combined with MaxIdleConnsPerHost approximates
// the same "don't re-resolve every request" effect for a long-lived pool).
func NewTransport() *http.Transport {
	return &http.Transport{
		MaxConnsPerHost:     MaxConnsPerHost,
		MaxIdleConns:        MaxConnsTotal,
		MaxIdleConnsPerHost: MaxConnsPerHost,
		IdleConnTimeout:     IdleTTL,
	}
}

// Client is a pooled connection manager bound to one credential (spec §4.D).
type Client struct {
	BaseURL    string
	Credential *core.Credential
	HTTP       Transporter
	Decoder    Decoder
	Logger     core.Logger

	OnRateLimitEvent func()
}

// New constructs a Client bound to credential, with an *http.Client over a
// fresh pooled transport (NewTransport) and RequestTimeout.
func New(baseURL string, credential *core.Credential, decoder Decoder, logger core.Logger) *Client {
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &Client{
		BaseURL:    baseURL,
		Credential: credential,
		HTTP:       &http.Client{Transport: NewTransport(), Timeout: RequestTimeout},
		Decoder:    decoder,
		Logger:     logger,
	}
}

// FetchWallPosts fetches up to count (<=100) posts from owner's wall at
// offset, retrying per the policy of spec §4.D/§7.
func (c *Client) FetchWallPosts(ctx context.Context, owner int64, count, offset int) ([]core.Post, error) {
	if count > 100 {
		count = 100
	}
	var result []core.Post
	err := c.doWithRetry(ctx, "wall.get", map[string]string{
		"owner_id": itoa(owner),
		"count":    itoa(int64(count)),
		"offset":   itoa(int64(offset)),
	}, func(body []byte) error {
		posts, err := c.Decoder.DecodeWallPosts(body)
		if err != nil {
			return core.Wrap(core.KindUpstreamRemote, err, "decode wall posts")
		}
		result = posts
		return nil
	})
	return result, err
}

// FetchPostByID fetches a single post by (owner, id).
func (c *Client) FetchPostByID(ctx context.Context, owner, postID int64) (core.Post, error) {
	var result core.Post
	err := c.doWithRetry(ctx, "wall.getById", map[string]string{
		"posts": itoa(owner) + "_" + itoa(postID),
	}, func(body []byte) error {
		post, err := c.Decoder.DecodePost(body)
		if err != nil {
			return core.Wrap(core.KindUpstreamRemote, err, "decode post")
		}
		result = post
		return nil
	})
	return result, err
}

// FetchGroupInfo fetches metadata for a single group.
func (c *Client) FetchGroupInfo(ctx context.Context, groupID int64) ([]byte, error) {
	var body []byte
	err := c.doWithRetry(ctx, "groups.getById", map[string]string{"group_id": itoa(groupID)}, func(b []byte) error {
		body = b
		return nil
	})
	return body, err
}

// FetchGroupsBatch fetches metadata for multiple groups in one call.
func (c *Client) FetchGroupsBatch(ctx context.Context, groupIDs []int64) ([]byte, error) {
	ids := ""
	for i, id := range groupIDs {
		if i > 0 {
			ids += ","
		}
		ids += itoa(id)
	}
	var body []byte
	err := c.doWithRetry(ctx, "groups.getById", map[string]string{"group_ids": ids}, func(b []byte) error {
		body = b
		return nil
	})
	return body, err
}

// ValidateCredential probes the upstream API to confirm the bound
// credential is still accepted, returning a typed auth error if not.
func (c *Client) ValidateCredential(ctx context.Context) error {
	return c.doWithRetry(ctx, "users.get", nil, func([]byte) error { return nil })
}

// doWithRetry implements the retry/backoff policy of spec §4.D and §7:
// rate-limit -> wait >=1s and retry (counted as a rate event); transport
// errors -> exponential backoff base 2s max 10s up to 3 attempts; auth
// errors are never retried.
func (c *Client) doWithRetry(ctx context.Context, method string, params map[string]string, handle func([]byte) error) error {
	var lastErr error
	delay := retryBaseDelay

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		body, err := c.doOnce(ctx, method, params)
		if err == nil {
			if herr := handle(body); herr != nil {
				return herr
			}
			return nil
		}

		switch core.KindOf(err) {
		case core.KindUpstreamAuth:
			// Non-retryable: propagate immediately and let the caller mark
			// the credential for revalidation.
			return err
		case core.KindUpstreamRateLimit:
			if c.OnRateLimitEvent != nil {
				c.OnRateLimitEvent()
			}
			lastErr = err
			if attempt < maxAttempts {
				if !sleep(ctx, rateLimitWait) {
					return ctx.Err()
				}
			}
		case core.KindUpstreamTransport:
			lastErr = err
			if attempt < maxAttempts {
				if !sleep(ctx, delay) {
					return ctx.Err()
				}
				delay *= 2
				if delay > retryMaxDelay {
					delay = retryMaxDelay
				}
			}
		default:
			return err
		}
	}
	return lastErr
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
