package upstream

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valstan/setka/internal/core"
)

type scriptedTransport struct {
	responses []scriptedResponse
	invoked   int
}

type scriptedResponse struct {
	status int
	body   string
	err    error
}

func (t *scriptedTransport) Do(*http.Request) (*http.Response, error) {
	idx := t.invoked
	if idx >= len(t.responses) {
		idx = len(t.responses) - 1
	}
	t.invoked++
	r := t.responses[idx]
	if r.err != nil {
		return nil, r.err
	}
	return &http.Response{
		StatusCode: r.status,
		Body:       io.NopCloser(strings.NewReader(r.body)),
	}, nil
}

func newTestClient(transport Transporter) *Client {
	cred := &core.Credential{Secret: "tok123", Status: core.CredentialStatusValid, IsActive: true}
	c := New("https://api.example.test", cred, JSONDecoder{}, core.NopLogger{})
	c.HTTP = transport
	return c
}

func TestFetchWallPostsSuccess(t *testing.T) {
	body := `{"response":{"items":[{"id":1,"owner_id":-100,"date":1700000000,"text":"hi","views":{"count":5}}]}}`
	c := newTestClient(&scriptedTransport{responses: []scriptedResponse{{status: 200, body: body}}})

	posts, err := c.FetchWallPosts(context.Background(), -100, 10, 0)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, int64(1), posts[0].ExternalPostID)
	assert.Equal(t, int64(5), posts[0].Views)
}

func TestFetchWallPostsAuthErrorNotRetried(t *testing.T) {
	body := `{"error":{"error_code":5,"error_msg":"auth failed"}}`
	transport := &scriptedTransport{responses: []scriptedResponse{{status: 200, body: body}}}
	c := newTestClient(transport)

	_, err := c.FetchWallPosts(context.Background(), -100, 10, 0)
	require.Error(t, err)
	assert.Equal(t, core.KindUpstreamAuth, core.KindOf(err))
	assert.Equal(t, 1, transport.invoked, "auth errors must not be retried")
}

func TestFetchWallPostsRateLimitRetriesThenSucceeds(t *testing.T) {
	rateLimited := `{"error":{"error_code":6,"error_msg":"too many requests"}}`
	ok := `{"response":{"items":[]}}`
	transport := &scriptedTransport{responses: []scriptedResponse{
		{status: 200, body: rateLimited},
		{status: 200, body: ok},
	}}
	c := newTestClient(transport)
	var rateEvents int
	c.OnRateLimitEvent = func() { rateEvents++ }

	posts, err := c.FetchWallPosts(context.Background(), -100, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, posts)
	assert.Equal(t, 1, rateEvents)
}

func TestFetchWallPostsTransportErrorBackoffExhausted(t *testing.T) {
	transport := &scriptedTransport{responses: []scriptedResponse{
		{err: assertErr("reset")},
	}}
	c := newTestClient(transport)

	_, err := c.FetchWallPosts(context.Background(), -100, 10, 0)
	require.Error(t, err)
	assert.Equal(t, core.KindUpstreamTransport, core.KindOf(err))
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
