package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"NewsletterBuilder/internal/config"
)

func TestApplyOverridesNormalizesFormat(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"EPUB":    "epub",
		" epub\n": "epub",
		"Txt":     "txt",
		"":        "txt",
		"   ":     "txt",
	}
	for in, want := range cases {
		cfg := config.Config{Newsletter: config.NewsletterConfig{OutputFormat: "txt", TopArticleCount: 5}}
		applyOverrides(&cfg, in, 0)
		assert.Equal(t, want, cfg.Newsletter.OutputFormat, "format %q", in)
		assert.Equal(t, 5, cfg.Newsletter.TopArticleCount)
	}
}

func TestApplyOverridesTopCount(t *testing.T) {
	t.Parallel()

	cfg := config.Config{Newsletter: config.NewsletterConfig{TopArticleCount: 5}}
	applyOverrides(&cfg, "", -1)
	assert.Equal(t, 5, cfg.Newsletter.TopArticleCount)

	applyOverrides(&cfg, "", 2)
	assert.Equal(t, 2, cfg.Newsletter.TopArticleCount)
}
