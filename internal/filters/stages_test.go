package filters

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valstan/setka/internal/core"
)

type fakeDuplicates struct {
	lips      map[string]bool
	textFull  map[string]bool
	textCore  map[string]bool
	mediaSeen map[string]bool
}

func newFakeDuplicates() *fakeDuplicates {
	return &fakeDuplicates{
		lips:      map[string]bool{},
		textFull:  map[string]bool{},
		textCore:  map[string]bool{},
		mediaSeen: map[string]bool{},
	}
}

func (f *fakeDuplicates) LIPExists(_ context.Context, lip string) (bool, error) {
	return f.lips[lip], nil
}
func (f *fakeDuplicates) TextFullExists(_ context.Context, hash string) (bool, error) {
	return f.textFull[hash], nil
}
func (f *fakeDuplicates) TextCoreExists(_ context.Context, hash string) (bool, error) {
	return f.textCore[hash], nil
}
func (f *fakeDuplicates) MediaIntersects(_ context.Context, ids []string) (bool, error) {
	for _, id := range ids {
		if f.mediaSeen[id] {
			return true, nil
		}
	}
	return false, nil
}

type fakeBlacklist struct {
	ids   []int64
	words []string
	err   error
}

func (f *fakeBlacklist) BlacklistedIDs(context.Context) ([]int64, error)    { return f.ids, f.err }
func (f *fakeBlacklist) BlacklistedWords(context.Context) ([]string, error) { return f.words, f.err }

type fakeKeywords struct {
	byRegion map[int64][]string
}

func (f *fakeKeywords) Keywords(_ context.Context, regionID int64) ([]string, error) {
	return f.byRegion[regionID], nil
}

func testEnv() *Environment {
	env := NewEnvironment(newFakeDuplicates(), &fakeBlacklist{}, &fakeKeywords{}, DefaultConfig())
	fixed := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	env.Now = func() time.Time { return fixed }
	return env
}

func TestStructuralDuplicateRejectsKnownLIP(t *testing.T) {
	env := testEnv()
	env.Duplicates.(*fakeDuplicates).lips["-100_1"] = true
	stage := NewStructuralDuplicate()

	v, err := stage.Check(context.Background(), &core.Post{Fingerprints: core.Fingerprints{LIP: "-100_1"}}, env)
	require.NoError(t, err)
	assert.False(t, v.Passed)
	assert.Equal(t, "duplicate_lip", v.Reason)
}

func TestDateRejectsTooOldAndBonusesFresh(t *testing.T) {
	env := testEnv()
	stage := NewDate()

	old := &core.Post{PublishedAt: env.now().Add(-100 * time.Hour)}
	v, err := stage.Check(context.Background(), old, env)
	require.NoError(t, err)
	assert.False(t, v.Passed)

	fresh := &core.Post{PublishedAt: env.now()}
	v, err = stage.Check(context.Background(), fresh, env)
	require.NoError(t, err)
	assert.True(t, v.Passed)
	assert.InDelta(t, env.Config.FreshBonusMax, v.ScoreDelta, 0.01)
}

func TestBlacklistIDRejectsOwnerOrAuthor(t *testing.T) {
	env := NewEnvironment(newFakeDuplicates(), &fakeBlacklist{ids: []int64{42}}, &fakeKeywords{}, DefaultConfig())
	stage := NewBlacklistID()

	v, err := stage.Check(context.Background(), &core.Post{ExternalOwnerID: 42}, env)
	require.NoError(t, err)
	assert.False(t, v.Passed)

	v, err = stage.Check(context.Background(), &core.Post{ExternalOwnerID: 1, ExternalAuthorID: 2}, env)
	require.NoError(t, err)
	assert.True(t, v.Passed)
}

func TestBlacklistIDCachesAcrossCalls(t *testing.T) {
	bl := &fakeBlacklist{ids: []int64{7}}
	env := NewEnvironment(newFakeDuplicates(), bl, &fakeKeywords{}, DefaultConfig())
	stage := NewBlacklistID()

	_, err := stage.Check(context.Background(), &core.Post{ExternalOwnerID: 7}, env)
	require.NoError(t, err)
	bl.ids = nil // mutate the backing store; cached copy should still apply
	v, err := stage.Check(context.Background(), &core.Post{ExternalOwnerID: 7}, env)
	require.NoError(t, err)
	assert.False(t, v.Passed, "cached blacklist should still reject within TTL")
}

func TestOnlyMainNewsRejectsCrossPosting(t *testing.T) {
	env := testEnv()
	env.Config.OnlyMainNewsOwners = map[int64]bool{-100: true}
	stage := NewOnlyMainNews()

	v, err := stage.Check(context.Background(), &core.Post{ExternalOwnerID: -100, ExternalAuthorID: -100}, env)
	require.NoError(t, err)
	assert.True(t, v.Passed)

	v, err = stage.Check(context.Background(), &core.Post{ExternalOwnerID: -100, ExternalAuthorID: 555}, env)
	require.NoError(t, err)
	assert.False(t, v.Passed)
}

func TestTextLengthRejectsEmptyAndOutOfBounds(t *testing.T) {
	env := testEnv()
	stage := NewTextLength()

	v, err := stage.Check(context.Background(), &core.Post{}, env)
	require.NoError(t, err)
	assert.False(t, v.Passed)

	v, err = stage.Check(context.Background(), &core.Post{Text: "short"}, env)
	require.NoError(t, err)
	assert.False(t, v.Passed)

	v, err = stage.Check(context.Background(), &core.Post{Text: "this text is long enough to pass"}, env)
	require.NoError(t, err)
	assert.True(t, v.Passed)
}

func TestMinimumViewsRejectsBelowThreshold(t *testing.T) {
	env := testEnv()
	env.Config.MinViews = 100
	stage := NewMinimumViews()

	v, err := stage.Check(context.Background(), &core.Post{Views: 50}, env)
	require.NoError(t, err)
	assert.False(t, v.Passed)

	v, err = stage.Check(context.Background(), &core.Post{Views: 100000}, env)
	require.NoError(t, err)
	assert.True(t, v.Passed)
	assert.InDelta(t, env.Config.ViewsBonusMax, v.ScoreDelta, 0.01)
}

func TestTextDuplicateFullAndCore(t *testing.T) {
	env := testEnv()
	dup := env.Duplicates.(*fakeDuplicates)
	dup.textFull["hashfull"] = true
	dup.textCore["hashcore"] = true

	vFull, err := NewTextDuplicateFull().Check(context.Background(), &core.Post{Fingerprints: core.Fingerprints{TextFull: "hashfull"}}, env)
	require.NoError(t, err)
	assert.False(t, vFull.Passed)

	vCore, err := NewTextDuplicateCore().Check(context.Background(), &core.Post{Fingerprints: core.Fingerprints{TextCore: "hashcore"}}, env)
	require.NoError(t, err)
	assert.False(t, vCore.Passed)
}

func TestMediaDuplicateRejectsIntersection(t *testing.T) {
	env := testEnv()
	dup := env.Duplicates.(*fakeDuplicates)
	dup.mediaSeen["photo1"] = true
	stage := NewMediaDuplicate()

	v, err := stage.Check(context.Background(), &core.Post{Fingerprints: core.Fingerprints{Media: []string{"photo1"}}}, env)
	require.NoError(t, err)
	assert.False(t, v.Passed)
}

func TestBlacklistWordRejectsToken(t *testing.T) {
	env := NewEnvironment(newFakeDuplicates(), &fakeBlacklist{words: []string{"казино"}}, &fakeKeywords{}, DefaultConfig())
	stage := NewBlacklistWord()

	v, err := stage.Check(context.Background(), &core.Post{Text: "реклама казино в городе"}, env)
	require.NoError(t, err)
	assert.False(t, v.Passed)
}

func TestSpamPatternRejectsMatch(t *testing.T) {
	env := testEnv()
	env.Config.SpamPatterns = []*regexp.Regexp{regexp.MustCompile(`(?i)click here`)}
	stage := NewSpamPattern()

	v, err := stage.Check(context.Background(), &core.Post{Text: "Click here to win!"}, env)
	require.NoError(t, err)
	assert.False(t, v.Passed)
}

func TestRegionalRelevanceRequiresMatches(t *testing.T) {
	env := NewEnvironment(newFakeDuplicates(), &fakeBlacklist{}, &fakeKeywords{byRegion: map[int64][]string{1: {"ремонт дороги"}}}, DefaultConfig())
	stage := NewRegionalRelevance()

	v, err := stage.Check(context.Background(), &core.Post{RegionID: 1, Text: "у нас в городе идет ремонт дороги"}, env)
	require.NoError(t, err)
	assert.True(t, v.Passed)

	v, err = stage.Check(context.Background(), &core.Post{RegionID: 1, Text: "ничего особенного"}, env)
	require.NoError(t, err)
	assert.False(t, v.Passed)
}

func TestNeighborRegionRequiresHashtag(t *testing.T) {
	env := testEnv()
	env.Config.NeighborRegionOwners = map[int64]bool{-200: true}
	env.Config.NeighborHashtags = []string{"#соседи"}
	stage := NewNeighborRegion()

	v, err := stage.Check(context.Background(), &core.Post{ExternalOwnerID: -200, Text: "важная новость #соседи"}, env)
	require.NoError(t, err)
	assert.True(t, v.Passed)

	v, err = stage.Check(context.Background(), &core.Post{ExternalOwnerID: -200, Text: "важная новость"}, env)
	require.NoError(t, err)
	assert.False(t, v.Passed)
}

func TestTextQualityRejectsLowWordCountAndPunctuationOverload(t *testing.T) {
	env := testEnv()
	stage := NewTextQuality()

	v, err := stage.Check(context.Background(), &core.Post{Text: "два слова"}, env)
	require.NoError(t, err)
	assert.False(t, v.Passed)

	v, err = stage.Check(context.Background(), &core.Post{Text: "!!! ??? *** ### @@@ %%%"}, env)
	require.NoError(t, err)
	assert.False(t, v.Passed)

	v, err = stage.Check(context.Background(), &core.Post{Text: "это вполне нормальный текст новости"}, env)
	require.NoError(t, err)
	assert.True(t, v.Passed)
}

func TestCategoryAllowAndBlockLists(t *testing.T) {
	env := testEnv()
	env.Config.CategoryBlock = map[string]bool{"advertising": true}
	stage := NewCategory()

	v, err := stage.Check(context.Background(), &core.Post{AICategory: "advertising"}, env)
	require.NoError(t, err)
	assert.False(t, v.Passed)

	env.Config.CategoryBlock = nil
	env.Config.CategoryAllow = map[string]bool{"news": true}
	v, err = stage.Check(context.Background(), &core.Post{AICategory: "sports"}, env)
	require.NoError(t, err)
	assert.False(t, v.Passed)

	v, err = stage.Check(context.Background(), &core.Post{AICategory: "news"}, env)
	require.NoError(t, err)
	assert.True(t, v.Passed)
}
