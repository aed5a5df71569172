package upstream

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/valstan/setka/internal/core"
)

// upstreamErrorCode is the subset of the remote API's numeric error codes
// spec §4.D/§7 classifies by meaning, not by exhaustive enumeration.
type upstreamErrorCode int

const (
	errCodeRateLimited   upstreamErrorCode = 6
	errCodeAuthFailed    upstreamErrorCode = 5
	errCodeTokenInvalid  upstreamErrorCode = 28
	errCodeAccessDenied  upstreamErrorCode = 15
	errCodePermissionLow upstreamErrorCode = 7
)

func classifyUpstreamCode(code upstreamErrorCode) core.ErrorKind {
	switch code {
	case errCodeRateLimited:
		return core.KindUpstreamRateLimit
	case errCodeAuthFailed, errCodeTokenInvalid, errCodeAccessDenied, errCodePermissionLow:
		return core.KindUpstreamAuth
	default:
		return core.KindUpstreamRemote
	}
}

// doOnce performs exactly one HTTP round-trip: build the request (adding
// the credential and APIVersion), execute it, and map the outcome onto the
// core.ErrorKind taxonomy of spec §7. It never retries — that's
// doWithRetry's job.
func (c *Client) doOnce(ctx context.Context, method string, params map[string]string) ([]byte, error) {
	reqURL := c.BaseURL + "/method/" + method
	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	values.Set("v", APIVersion)
	if c.Credential != nil {
		values.Set("access_token", c.Credential.Secret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, strings.NewReader(values.Encode()))
	if err != nil {
		return nil, core.Wrap(core.KindValidation, err, "build upstream request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, core.Wrap(core.KindUpstreamTransport, err, "upstream transport failure")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, core.Wrap(core.KindUpstreamTransport, err, "read upstream response body")
	}

	if resp.StatusCode >= 500 {
		return nil, core.NewError(core.KindUpstreamTransport, "upstream returned status %d", resp.StatusCode)
	}

	if c.Decoder != nil {
		if derr := c.Decoder.DecodeError(body, resp.StatusCode); derr != nil {
			return nil, derr
		}
	}

	return body, nil
}

// ClassifyDecodedErrorCode is a helper a Decoder implementation can use to
// turn the remote API's numeric error code into a core error of the right
// kind, keeping the classification table in one place.
func ClassifyDecodedErrorCode(code int, message string) error {
	kind := classifyUpstreamCode(upstreamErrorCode(code))
	return core.NewError(kind, "upstream error %d: %s", code, message)
}
