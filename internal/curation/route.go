package curation

import (
	"slices"
	"strconv"
	"strings"

	"sttbench/internal/category"
)

const noisyPrefix = "noisy_"

// nativeAccents lists, per metadata language, the accents its language
// folders already cover. Any other accent is routed to accent_<name>.
var nativeAccents = map[string][]string{
	"english":   {"", "unknown_accent", "us", "uk", "hk", "american", "british"},
	"cantonese": {"", "unknown_accent", "hk", "cantonese"},
	"mandarin":  {"", "unknown_accent", "cn", "tw", "mandarin"},
}

// LanguageFolder maps a metadata language and accent to a category language.
// English splits by accent into UK, HK and (for anything else) US.
func LanguageFolder(language, accent string) (string, bool) {
	switch language {
	case "english":
		switch accent {
		case "uk":
			return "English-UK", true
		case "hk":
			return "English-HK", true
		}
		return "English-US", true
	case "cantonese":
		return "Cantonese-HK", true
	case "mandarin":
		if accent == "tw" {
			return "Mandarin-TW", true
		}
		return "Mandarin-CN", true
	}
	return "", false
}

// Route picks the category of one chunk. Noise-mixed variants go to
// noisy_<level>; clean chunks of a non-native accent go to accent_<name>
// and never to the numbers folder. The second value is false for languages
// with no folder.
func Route(video Video, variant string, hasNumbers bool) (category.Key, bool) {
	lang, ok := LanguageFolder(video.Language, video.Accent)
	if !ok {
		return category.Key{}, false
	}
	key := category.Clean(lang)
	if level := noiseLevel(variant); level > 0 {
		key.Numbers = hasNumbers
		return key.WithNoise(level), true
	}
	if !slices.Contains(nativeAccents[video.Language], video.Accent) {
		return key.WithAccent(accentName(video.Accent)), true
	}
	key.Numbers = hasNumbers
	return key, true
}

// noiseLevel reads the level of a noisy_<level> variant; other variants are
// clean.
func noiseLevel(variant string) int {
	rest, ok := strings.CutPrefix(variant, noisyPrefix)
	if !ok {
		return 0
	}
	level, err := strconv.Atoi(rest)
	if err != nil || level < 0 {
		return 0
	}
	return level
}

func accentName(accent string) string {
	name := strings.Join(strings.Fields(accent), "_")
	return strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' {
			return '_'
		}
		return r
	}, name)
}
