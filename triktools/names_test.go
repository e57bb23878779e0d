package triktools_test

import (
	"testing"

	"github.com/molefas/trikbridge/triktools"
	"github.com/stretchr/testify/assert"
)

func TestToLocalName(t *testing.T) {
	tcases := []struct {
		remote string
		local  string
	}{
		{"@molefas/article-search:list", "molefas_article_search__list"},
		{"weather:get-forecast", "weather__get_forecast"},
		{"simple:act", "simple__act"},
		{"noseparator", "noseparator"},
	}
	for _, tc := range tcases {
		assert.Equal(t, tc.local, triktools.ToLocalName(tc.remote), "remote: %s", tc.remote)
	}
}

func TestFromLocalName(t *testing.T) {
	assert.Equal(t, "article-search:list", triktools.FromLocalName("article_search__list"))
	assert.Equal(t, "weather:forecast", triktools.FromLocalName("weather__forecast"))
	// no separator: everything is treated as a trik id
	assert.Equal(t, "plain-name", triktools.FromLocalName("plain_name"))
}

// The reverse mapping cannot restore a scope prefix or distinguish
// hyphens from underscores. Round-tripping a scoped name yields a
// plausible but different remote name, which is why execution always
// uses the remote name stored at bind time.
func TestFromLocalNameLossy(t *testing.T) {
	local := triktools.ToLocalName("@group/x:act")
	assert.Equal(t, "group_x__act", local)
	assert.Equal(t, "group-x:act", triktools.FromLocalName(local))
}
