package fingerprint

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLowercasesAndStrips(t *testing.T) {
	in := "Hello,  WORLD!!!  ​Привет мир"
	got := Normalize(in)
	assert.Equal(t, "hello world привет мир", got)
}

func TestNormalizeDropsReplacementChar(t *testing.T) {
	in := "abc�def"
	got := Normalize(in)
	assert.Equal(t, "abcdef", got)
}

func TestLIP(t *testing.T) {
	assert.Equal(t, "-100_1", LIP(-100, 1))
}

func TestCoreSliceShortTextUsesFull(t *testing.T) {
	text := Normalize("short text under fifty runes")
	require.Less(t, len([]rune(text)), 50)
	assert.Equal(t, text, CoreSlice(text))
}

func TestCoreSliceLongTextSlicesMiddle(t *testing.T) {
	text := strings.Repeat("a", 100)
	core := CoreSlice(text)
	assert.Equal(t, strings.Repeat("a", 50), core)
}

func TestTextCoreStableAcrossInvocations(t *testing.T) {
	text := Normalize(strings.Repeat("hello world ", 10))
	h1 := TextCore(text)
	h2 := TextCore(text)
	assert.Equal(t, h1, h2)
}

func TestTextCoreRobustToBoilerplate(t *testing.T) {
	core := strings.Repeat("core content repeated ", 20)
	a := Normalize(core)
	b := Normalize(strings.Repeat("x", 100) + core + strings.Repeat("y", 100))
	assert.Equal(t, TextCore(a), TextCore(b))
}

func TestMediaSortsAndFiltersByType(t *testing.T) {
	media := Media([]MediaAttachment{
		{Type: "video", ID: "b"},
		{Type: "doc", ID: "a"},
		{Type: "photo", ID: "a"},
	})
	assert.Equal(t, []string{"a", "b"}, media)
}

func TestMediaDigestDeterministic(t *testing.T) {
	ids := []string{"a", "b", "c"}
	assert.Equal(t, MediaDigest(ids), MediaDigest(ids))
	assert.NotEqual(t, MediaDigest(ids), MediaDigest([]string{"a", "b"}))
}

func TestDeriveFullPost(t *testing.T) {
	r := Derive(RawPost{
		OwnerID: -100,
		PostID:  42,
		Text:    "Hello world",
		Attachments: []MediaAttachment{
			{Type: "photo", ID: "z"},
			{Type: "photo", ID: "a"},
		},
	})
	assert.Equal(t, "-100_42", r.LIP)
	assert.Equal(t, []string{"a", "z"}, r.Media)
	assert.NotEmpty(t, r.TextFull)
	assert.NotEmpty(t, r.TextCore)
}
