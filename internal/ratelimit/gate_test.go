package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRateGateE3 reproduces spec scenario E3: limit=5/min, 6 admissions at
// t=0..5s; first five admitted, sixth denied with retry_after=55s.
func TestRateGateE3(t *testing.T) {
	gate := New(NewMemStore(), nil, nil, nil)
	limit := Limit{Max: 5, Window: time.Minute}
	base := time.Now()

	store := gate.Store.(*MemStore)
	admitAt := func(offset time.Duration) Decision {
		// Drive the store directly with a synthetic clock so the test is
		// not flaky under real wall-clock scheduling.
		ok, oldest, err := store.Admit(context.Background(), "credential:tok", base.Add(offset), limit.Window, limit.Max)
		require.NoError(t, err)
		if ok {
			return Decision{Admitted: true}
		}
		retryAfter := limit.Window - base.Add(offset).Sub(oldest)
		return Decision{Admitted: false, RetryAfter: retryAfter}
	}

	for i := 0; i < 5; i++ {
		d := admitAt(time.Duration(i) * time.Second)
		assert.True(t, d.Admitted, "admission %d should be admitted", i)
	}
	sixth := admitAt(5 * time.Second)
	assert.False(t, sixth.Admitted)
	assert.Equal(t, 55*time.Second, sixth.RetryAfter.Round(time.Second))
}

func TestRateGateStrictLessThan(t *testing.T) {
	gate := New(NewMemStore(), nil, nil, nil)
	limit := Limit{Max: 1, Window: time.Second}
	ctx := context.Background()

	d1 := gate.Admit(ctx, ScopeCredential, "k", limit)
	assert.True(t, d1.Admitted)
	d2 := gate.Admit(ctx, ScopeCredential, "k", limit)
	assert.False(t, d2.Admitted)
}

func TestRateGateFailsOpenOnStoreError(t *testing.T) {
	metrics := &countingMetrics{}
	gate := New(FailingStore{Err: assertErr("boom")}, nil, metrics, nil)
	d := gate.Admit(context.Background(), ScopeCredential, "k", DefaultCredentialLimit)
	assert.True(t, d.Admitted)
	assert.True(t, d.FailedOpen)
	assert.Equal(t, 1, metrics.failOpen)
}

func TestRateGateBlacklistPrecedesWindow(t *testing.T) {
	lists := NewMemListStore()
	lists.Blacklist(ScopeClientIP, "1.2.3.4")
	gate := New(NewMemStore(), lists, nil, nil)

	d := gate.Admit(context.Background(), ScopeClientIP, "1.2.3.4", DefaultClientIPLimit)
	assert.False(t, d.Admitted)
	assert.True(t, d.Blacklisted)
}

func TestRateGateWhitelistBypassesWindow(t *testing.T) {
	lists := NewMemListStore()
	lists.Whitelist(ScopeClientIP, "1.2.3.4")
	store := NewMemStore()
	// Exhaust the window so a non-whitelisted caller would be denied.
	ctx := context.Background()
	for i := 0; i < DefaultClientIPLimit.Max; i++ {
		_, _, _ = store.Admit(ctx, "client_ip:1.2.3.4", time.Now(), DefaultClientIPLimit.Window, DefaultClientIPLimit.Max)
	}
	gate := New(store, lists, nil, nil)

	d := gate.Admit(ctx, ScopeClientIP, "1.2.3.4", DefaultClientIPLimit)
	assert.True(t, d.Admitted)
}

type countingMetrics struct {
	failOpen, denied, admitted int
}

func (c *countingMetrics) RecordFailOpen(Scope) { c.failOpen++ }
func (c *countingMetrics) RecordDenied(Scope)   { c.denied++ }
func (c *countingMetrics) RecordAdmitted(Scope) { c.admitted++ }

type assertErr string

func (e assertErr) Error() string { return string(e) }
