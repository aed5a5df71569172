// Package regionconfig implements the Region Config merge of spec.md §6:
// built_in_defaults ◁ region_defaults ◁ by_topic[topic], where ◁ overrides
// only the fields the narrower document actually sets, plus rendering of
// the resulting title/footer templates.
package regionconfig

import (
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/fatih/camelcase"
	"github.com/pkg/errors"

	"github.com/valstan/setka/internal/core"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

// BuiltInDefaults is the lowest tier of the merge: the settings a Region
// falls back to when it sets neither its own defaults nor a topic override.
func BuiltInDefaults() core.DigestTemplateSettings {
	return core.DigestTemplateSettings{
		Title:                 strPtr("Дайджест {{.RegionName}}"),
		Footer:                strPtr("{{.RegionName}} · {{.Date}}"),
		IncludeSourceLinks:    boolPtr(true),
		IncludeTopicHashtag:   boolPtr(true),
		IncludeRegionHashtags: boolPtr(true),
		TopicHashtagOverride:  strPtr(""),
	}
}

// normalizeTopicKey folds a topic name to a comparison key that is
// insensitive to case and to naming style, so "OrthodoxNews",
// "orthodox_news", and "Orthodox News" all resolve to the same topic.
func normalizeTopicKey(topic string) string {
	parts := camelcase.Split(strings.NewReplacer("_", " ", "-", " ").Replace(topic))
	words := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		words = append(words, strings.ToLower(p))
	}
	return strings.Join(words, "")
}

// lookupTopic finds cfg.ByTopic[topic] tolerating naming-style mismatches.
func lookupTopic(cfg core.RegionConfig, topic string) (core.DigestTemplateSettings, bool) {
	if cfg.ByTopic == nil {
		return core.DigestTemplateSettings{}, false
	}
	if s, ok := cfg.ByTopic[topic]; ok {
		return s, true
	}
	key := normalizeTopicKey(topic)
	for k, s := range cfg.ByTopic {
		if normalizeTopicKey(k) == key {
			return s, true
		}
	}
	return core.DigestTemplateSettings{}, false
}

// overlay copies every non-nil field of override onto base.
func overlay(base core.DigestTemplateSettings, override core.DigestTemplateSettings) core.DigestTemplateSettings {
	if override.Title != nil {
		base.Title = override.Title
	}
	if override.Footer != nil {
		base.Footer = override.Footer
	}
	if override.IncludeSourceLinks != nil {
		base.IncludeSourceLinks = override.IncludeSourceLinks
	}
	if override.IncludeTopicHashtag != nil {
		base.IncludeTopicHashtag = override.IncludeTopicHashtag
	}
	if override.IncludeRegionHashtags != nil {
		base.IncludeRegionHashtags = override.IncludeRegionHashtags
	}
	if override.TopicHashtagOverride != nil {
		base.TopicHashtagOverride = override.TopicHashtagOverride
	}
	return base
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefBool(b *bool) bool {
	if b == nil {
		return false
	}
	return *b
}

// Effective computes built_in_defaults ◁ cfg.Defaults ◁ cfg.ByTopic[topic],
// the merge spec.md §6 requires, collapsing any remaining nils to zero
// values so no caller ever sees an unset pointer.
func Effective(cfg core.RegionConfig, topic string) core.EffectiveDigestTemplate {
	merged := overlay(BuiltInDefaults(), cfg.Defaults)
	if topicSettings, ok := lookupTopic(cfg, topic); ok {
		merged = overlay(merged, topicSettings)
	}
	return core.EffectiveDigestTemplate{
		Title:                 deref(merged.Title),
		Footer:                deref(merged.Footer),
		IncludeSourceLinks:    derefBool(merged.IncludeSourceLinks),
		IncludeTopicHashtag:   derefBool(merged.IncludeTopicHashtag),
		IncludeRegionHashtags: derefBool(merged.IncludeRegionHashtags),
		TopicHashtagOverride:  deref(merged.TopicHashtagOverride),
	}
}

// RenderData is the context a digest template is rendered against.
type RenderData struct {
	RegionName string
	RegionCode string
	Topic      string
	Date       string
}

// Render expands a title/footer template using sprig's function set (the
// teacher's own choice of template helper library), so a region config can
// reference functions like `upper`, `trunc`, or `date` inside its title and
// footer strings.
func Render(tmpl string, data RenderData) (string, error) {
	t, err := template.New("digest").Funcs(sprig.TxtFuncMap()).Parse(tmpl)
	if err != nil {
		return "", errors.Wrap(err, "regionconfig: parse template")
	}
	var buf strings.Builder
	if err := t.Execute(&buf, data); err != nil {
		return "", errors.Wrap(err, "regionconfig: render template")
	}
	return buf.String(), nil
}

// RenderEffective resolves and renders both the title and footer of a
// region's effective digest template for one topic.
func RenderEffective(cfg core.RegionConfig, topic string, data RenderData) (title string, footer string, err error) {
	eff := Effective(cfg, topic)
	title, err = Render(eff.Title, data)
	if err != nil {
		return "", "", err
	}
	footer, err = Render(eff.Footer, data)
	if err != nil {
		return "", "", err
	}
	return title, footer, nil
}
