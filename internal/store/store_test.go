package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valstan/setka/internal/core"
)

func fixedNow() time.Time {
	return time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
}

func TestRegionStoreRejectsDuplicateCode(t *testing.T) {
	s := NewRegionStore()
	ctx := context.Background()

	_, err := s.Create(ctx, core.Region{Code: "pskov"})
	require.NoError(t, err)

	_, err = s.Create(ctx, core.Region{Code: "pskov"})
	assert.Error(t, err)
}

func TestRegionStoreActiveRegionsFiltersInactive(t *testing.T) {
	s := NewRegionStore()
	ctx := context.Background()
	_, _ = s.Create(ctx, core.Region{Code: "active", IsActive: true})
	_, _ = s.Create(ctx, core.Region{Code: "inactive", IsActive: false})

	active, err := s.ActiveRegions(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "active", active[0].Code)
}

func TestCredentialStoreEligibleFiltersStatusAndActive(t *testing.T) {
	s := NewCredentialStore()
	ctx := context.Background()
	_, _ = s.Create(ctx, core.Credential{Name: "valid", IsActive: true, Status: core.CredentialStatusValid})
	_, _ = s.Create(ctx, core.Credential{Name: "invalid", IsActive: true, Status: core.CredentialStatusInvalid})
	_, _ = s.Create(ctx, core.Credential{Name: "disabled", IsActive: false, Status: core.CredentialStatusValid})

	eligible, err := s.Eligible(ctx)
	require.NoError(t, err)
	require.Len(t, eligible, 1)
	assert.Equal(t, "valid", eligible[0].Name)
}

func TestPostStoreCreateRejectsDuplicateLIP(t *testing.T) {
	s := NewPostStore()
	ctx := context.Background()

	_, err := s.Create(ctx, core.Post{Fingerprints: core.Fingerprints{LIP: "1_100"}})
	require.NoError(t, err)

	_, err = s.Create(ctx, core.Post{Fingerprints: core.Fingerprints{LIP: "1_100"}})
	assert.Error(t, err)
}

func TestPostStoreLIPExistsAndDuplicateLookups(t *testing.T) {
	s := NewPostStore()
	ctx := context.Background()

	_, err := s.Create(ctx, core.Post{
		Fingerprints: core.Fingerprints{
			LIP:      "1_200",
			TextFull: "hashfull",
			TextCore: "hashcore",
			Media:    []string{"photo1", "video2"},
		},
	})
	require.NoError(t, err)

	exists, _ := s.LIPExists(ctx, "1_200")
	assert.True(t, exists)

	fullDup, _ := s.TextFullExists(ctx, "hashfull")
	assert.True(t, fullDup)

	coreDup, _ := s.TextCoreExists(ctx, "hashcore")
	assert.True(t, coreDup)

	mediaDup, _ := s.MediaIntersects(ctx, []string{"video2", "nope"})
	assert.True(t, mediaDup)

	noDup, _ := s.MediaIntersects(ctx, []string{"nope"})
	assert.False(t, noDup)
}

func TestPostStoreUpsertStatsDoesNotReinsert(t *testing.T) {
	s := NewPostStore()
	ctx := context.Background()

	created, err := s.Create(ctx, core.Post{Fingerprints: core.Fingerprints{LIP: "1_300"}, Views: 10})
	require.NoError(t, err)

	updated, found, err := s.UpsertStats(ctx, "1_300", 50, 5, 2, 1)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, created.ID, updated.ID, "upsert must refresh the existing row, not create a new one")
	assert.Equal(t, int64(50), updated.Views)

	_, found, _ = s.UpsertStats(ctx, "unknown-lip", 1, 1, 1, 1)
	assert.False(t, found)
}

func TestPostStoreUpdateStatusRejectsTerminal(t *testing.T) {
	s := NewPostStore()
	ctx := context.Background()
	p, _ := s.Create(ctx, core.Post{Fingerprints: core.Fingerprints{LIP: "1_400"}, Status: core.PostStatusAccepted})

	err := s.UpdateStatus(ctx, p.ID, core.PostStatusRejected)
	assert.Error(t, err, "terminal status must not transition again")
}

func TestBlacklistStoreAddAndQuery(t *testing.T) {
	s := NewBlacklistStore()
	ctx := context.Background()

	s.AddID(42)
	s.AddWord("spam")

	ids, _ := s.BlacklistedIDs(ctx)
	assert.Contains(t, ids, int64(42))

	words, _ := s.BlacklistedWords(ctx)
	assert.Contains(t, words, "spam")

	s.RemoveID(42)
	ids, _ = s.BlacklistedIDs(ctx)
	assert.NotContains(t, ids, int64(42))
}

func TestKeywordStoreSetAndGet(t *testing.T) {
	s := NewKeywordStore()
	ctx := context.Background()
	s.SetKeywords(7, []string{"псков", "область"})

	kw, err := s.Keywords(ctx, 7)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"псков", "область"}, kw)

	none, err := s.Keywords(ctx, 999)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDirectoryAdaptsStoreForDispatcher(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, _ = s.Regions.Create(ctx, core.Region{Code: "r1", IsActive: true})
	_, _ = s.Credentials.Create(ctx, core.Credential{Name: "c1", IsActive: true, Status: core.CredentialStatusValid})

	dir := NewDirectory(s)
	regions, err := dir.ActiveRegions(ctx)
	require.NoError(t, err)
	assert.Len(t, regions, 1)

	creds, err := dir.Credentials(ctx)
	require.NoError(t, err)
	assert.Len(t, creds, 1)
}

func TestEngagementStoreAccumulatesSamples(t *testing.T) {
	s := NewEngagementStore()
	s.Record(1, 14, 2, 100, 90, fixedNow())
	s.Record(1, 14, 2, 200, 90, fixedNow())

	buckets := s.ByRegion(1)
	require.Len(t, buckets, 1)
	assert.Equal(t, int64(2), buckets[0].SampleCount)
	assert.Equal(t, float64(150), buckets[0].Average())
}
