package ingest

import (
	"regexp"
	"strings"
)

// Source systems append the agent's phone extension to the display name
// ("Wellington Silva - 6373", "KLEBER JARENKO- 6372", "Ana Franco 63731").
var extensionSuffix = regexp.MustCompile(`\s*-?\s*\d{4,5}\s*$`)

// NormalizeAgentName builds the canonical lookup key for an agent name:
// extension suffix stripped, diacritics folded to ASCII, upper-cased,
// internal whitespace collapsed.
func NormalizeAgentName(name string) string {
	return NormalizeKey(extensionSuffix.ReplaceAllString(name, ""))
}

// NormalizeKey builds the canonical lookup key for channel and status names:
// trimmed, diacritics folded, upper-cased, whitespace collapsed.
func NormalizeKey(name string) string {
	folded := foldDiacritics(strings.ToUpper(strings.TrimSpace(name)))
	return strings.Join(strings.Fields(folded), " ")
}

// DisplayAgentName renders a normalized agent key back into Title Case for
// storage as the display name.
func DisplayAgentName(key string) string {
	words := strings.Fields(strings.ToLower(key))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

var diacriticFolds = map[rune]rune{
	'À': 'A', 'Á': 'A', 'Â': 'A', 'Ã': 'A', 'Ä': 'A', 'Å': 'A',
	'È': 'E', 'É': 'E', 'Ê': 'E', 'Ë': 'E',
	'Ì': 'I', 'Í': 'I', 'Î': 'I', 'Ï': 'I',
	'Ò': 'O', 'Ó': 'O', 'Ô': 'O', 'Õ': 'O', 'Ö': 'O',
	'Ù': 'U', 'Ú': 'U', 'Û': 'U', 'Ü': 'U',
	'Ç': 'C', 'Ñ': 'N', 'Ý': 'Y',
}

func foldDiacritics(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if f, ok := diacriticFolds[r]; ok {
			r = f
		}
		b.WriteRune(r)
	}
	return b.String()
}
