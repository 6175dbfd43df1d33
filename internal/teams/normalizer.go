// Package teams canonicalizes free-text team names so records from
// different feeds can be compared for equality.
package teams

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalizer maps team names to canonical keys. It is safe for concurrent use.
type Normalizer struct {
	mu      sync.RWMutex
	aliases map[string]string
}

// NewNormalizer returns a Normalizer seeded with the built-in alias table.
func NewNormalizer() *Normalizer {
	aliases := make(map[string]string, len(defaultAliases))
	for k, v := range defaultAliases {
		aliases[k] = v
	}
	return &Normalizer{aliases: aliases}
}

// WithAliases adds or overrides aliases. Keys and values are normalized
// before being stored, so callers may pass display names.
func (n *Normalizer) WithAliases(extra map[string]string) *Normalizer {
	n.mu.Lock()
	defer n.mu.Unlock()
	for k, v := range extra {
		key := clean(k)
		if key == "" {
			continue
		}
		n.aliases[key] = clean(v)
	}
	return n
}

// Normalize returns the canonical key for name. It never fails; an empty or
// symbol-only name yields "".
func (n *Normalizer) Normalize(name string) string {
	key := clean(name)
	if key == "" {
		return ""
	}

	n.mu.RLock()
	defer n.mu.RUnlock()
	if canonical, ok := n.aliases[key]; ok {
		return canonical
	}
	return key
}

// TeamsMatch reports whether two home/away pairs describe the same matchup,
// either directly or with home and away swapped.
func (n *Normalizer) TeamsMatch(aHome, aAway, bHome, bAway string) bool {
	ah, aa := n.Normalize(aHome), n.Normalize(aAway)
	bh, ba := n.Normalize(bHome), n.Normalize(bAway)
	if ah == "" || aa == "" {
		return false
	}
	return (ah == bh && aa == ba) || (ah == ba && aa == bh)
}

var foldMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// clean lowercases, strips diacritics and collapses every run of
// non-alphanumerics into a single space.
func clean(name string) string {
	folded, _, err := transform.String(foldMarks, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	b.Grow(len(folded))
	space := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteRune(r)
			space = false
			continue
		}
		space = true
	}

	tokens := strings.Fields(b.String())
	kept := tokens[:0]
	for i, tok := range tokens {
		switch {
		case droppedTokens[tok] && len(tokens) > 1:
			continue
		case tok == "st" && i == 0 && len(tokens) > 1:
			tok = "saint"
		case tok == "st" && i == len(tokens)-1 && i > 0:
			tok = "state"
		case tok == "utd":
			tok = "united"
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}

var defaultNormalizer = NewNormalizer()

// Normalize canonicalizes name with the built-in alias table.
func Normalize(name string) string {
	return defaultNormalizer.Normalize(name)
}

// TeamsMatch compares two matchups with the built-in alias table.
func TeamsMatch(aHome, aAway, bHome, bAway string) bool {
	return defaultNormalizer.TeamsMatch(aHome, aAway, bHome, bAway)
}
