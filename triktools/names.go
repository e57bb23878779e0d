package triktools

import (
	"strings"
)

// ToLocalName converts a remote tool name to an identifier-safe local
// name for the model's tool list.
// Example: "@molefas/article-search:list" -> "molefas_article_search__list".
func ToLocalName(remoteName string) string {
	r := strings.NewReplacer(
		"@", "",
		"/", "_",
		"-", "_",
		":", "__",
	)
	return r.Replace(remoteName)
}

// FromLocalName converts a local tool name back to the remote
// "trikId:actionName" format.
//
// The mapping is lossy: a leading "@" is irrecoverable and the trik id
// is reconstructed only when exactly one "__" separator is present.
// Example: "molefas_article_search__list" -> "molefas-article-search:list".
// The execution path never relies on this; every bound tool keeps its
// original remote name.
func FromLocalName(localName string) string {
	parts := strings.Split(localName, "__")
	if len(parts) == 2 {
		trikID := strings.ReplaceAll(parts[0], "_", "-")
		return trikID + ":" + parts[1]
	}
	return strings.ReplaceAll(localName, "_", "-")
}
