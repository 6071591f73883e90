package metrics

import (
	"strings"
	"unicode"
)

// TokenMode selects how text is split before computing edit distance.
type TokenMode int

const (
	// Words splits on whitespace (WER).
	Words TokenMode = iota
	// Characters treats every non-space rune as a token (CER).
	Characters
)

func (m TokenMode) String() string {
	if m == Characters {
		return "characters"
	}
	return "words"
}

// Tokenize normalizes text and splits it according to mode.
func Tokenize(text string, mode TokenMode) []string {
	normalized := Normalize(text, mode)
	if mode == Words {
		return strings.Fields(normalized)
	}
	tokens := make([]string, 0, len(normalized))
	for _, r := range normalized {
		if unicode.IsSpace(r) {
			continue
		}
		tokens = append(tokens, string(r))
	}
	return tokens
}

// Tokenizer resolves the token mode for a language from an explicit list of
// character-tokenized languages.
type Tokenizer struct {
	characterLanguages map[string]struct{}
}

// NewTokenizer builds a Tokenizer. Entries match a full language name
// ("Cantonese-HK") or its base ("Cantonese" matches "Cantonese-HK"),
// case-insensitively.
func NewTokenizer(characterLanguages []string) *Tokenizer {
	set := make(map[string]struct{}, len(characterLanguages))
	for _, lang := range characterLanguages {
		lang = strings.ToLower(strings.TrimSpace(lang))
		if lang != "" {
			set[lang] = struct{}{}
		}
	}
	return &Tokenizer{characterLanguages: set}
}

// ModeFor returns the token mode configured for language.
func (t *Tokenizer) ModeFor(language string) TokenMode {
	if t == nil {
		return Words
	}
	lang := strings.ToLower(strings.TrimSpace(language))
	if _, ok := t.characterLanguages[lang]; ok {
		return Characters
	}
	if base, _, found := strings.Cut(lang, "-"); found {
		if _, ok := t.characterLanguages[base]; ok {
			return Characters
		}
	}
	return Words
}
