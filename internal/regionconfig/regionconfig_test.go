package regionconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valstan/setka/internal/core"
)

func TestEffectiveFallsBackToBuiltInDefaults(t *testing.T) {
	cfg := core.RegionConfig{}
	eff := Effective(cfg, "news")

	assert.Equal(t, "Дайджест {{.RegionName}}", eff.Title)
	assert.True(t, eff.IncludeSourceLinks)
	assert.True(t, eff.IncludeTopicHashtag)
	assert.True(t, eff.IncludeRegionHashtags)
}

func TestEffectiveRegionDefaultsOverrideBuiltIn(t *testing.T) {
	cfg := core.RegionConfig{
		Defaults: core.DigestTemplateSettings{
			Title:              strPtr("{{.RegionCode}} дайджест"),
			IncludeSourceLinks: boolPtr(false),
		},
	}
	eff := Effective(cfg, "news")

	assert.Equal(t, "{{.RegionCode}} дайджест", eff.Title)
	assert.False(t, eff.IncludeSourceLinks)
	// Unset region field still falls through to the built-in default.
	assert.True(t, eff.IncludeTopicHashtag)
}

func TestEffectiveTopicOverridesRegionDefaults(t *testing.T) {
	cfg := core.RegionConfig{
		Defaults: core.DigestTemplateSettings{
			IncludeRegionHashtags: boolPtr(true),
		},
		ByTopic: map[string]core.DigestTemplateSettings{
			"OrthodoxNews": {
				IncludeRegionHashtags: boolPtr(false),
				TopicHashtagOverride:  strPtr("#правдано"),
			},
		},
	}
	eff := Effective(cfg, "orthodox_news")

	assert.False(t, eff.IncludeRegionHashtags, "topic override must win over region default")
	assert.Equal(t, "#правдано", eff.TopicHashtagOverride)
}

func TestTopicLookupIsStyleInsensitive(t *testing.T) {
	cfg := core.RegionConfig{
		ByTopic: map[string]core.DigestTemplateSettings{
			"Orthodox News": {Title: strPtr("override")},
		},
	}

	for _, variant := range []string{"orthodoxnews", "OrthodoxNews", "orthodox_news", "Orthodox-News"} {
		eff := Effective(cfg, variant)
		assert.Equal(t, "override", eff.Title, "variant %q should resolve to the same topic", variant)
	}
}

func TestTopicLookupFallsBackWhenNoMatch(t *testing.T) {
	cfg := core.RegionConfig{
		ByTopic: map[string]core.DigestTemplateSettings{
			"sport": {Title: strPtr("sport title")},
		},
	}
	eff := Effective(cfg, "culture")
	assert.Equal(t, "Дайджест {{.RegionName}}", eff.Title)
}

func TestRenderExpandsTemplateData(t *testing.T) {
	out, err := Render("{{.RegionName}} ({{.RegionCode}}) — {{.Topic}}", RenderData{
		RegionName: "Псковская область",
		RegionCode: "pskov",
		Topic:      "news",
	})
	require.NoError(t, err)
	assert.Equal(t, "Псковская область (pskov) — news", out)
}

func TestRenderSupportsSprigFunctions(t *testing.T) {
	out, err := Render("{{upper .RegionCode}}", RenderData{RegionCode: "pskov"})
	require.NoError(t, err)
	assert.Equal(t, "PSKOV", out)
}

func TestRenderInvalidTemplateReturnsError(t *testing.T) {
	_, err := Render("{{.Unclosed", RenderData{})
	assert.Error(t, err)
}

func TestRenderEffectiveRendersBothTitleAndFooter(t *testing.T) {
	cfg := core.RegionConfig{
		Defaults: core.DigestTemplateSettings{
			Title:  strPtr("{{.RegionName}} дайджест"),
			Footer: strPtr("{{.Date}}"),
		},
	}
	title, footer, err := RenderEffective(cfg, "news", RenderData{RegionName: "Тверская область", Date: "2026-07-30"})
	require.NoError(t, err)
	assert.Equal(t, "Тверская область дайджест", title)
	assert.Equal(t, "2026-07-30", footer)
}
