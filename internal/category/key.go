// Package category models the grouping key used for evaluation results.
//
// A key combines a language, an optional "-Numbers" variant flag, and at most
// one modifier (an accent or a noise level). String renders the legacy
// folder-derived form such as `Cantonese-HK\noisy_50`.
package category

import (
	"cmp"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidKey indicates a key string that does not follow the category grammar.
var ErrInvalidKey = errors.New("invalid category key")

const (
	numbersSuffix = "-Numbers"
	accentPrefix  = "accent_"
	noisePrefix   = "noisy_"
	separator     = `\`
)

// Modifier identifies which optional qualifier a key carries.
type Modifier int

const (
	ModifierNone Modifier = iota
	ModifierAccent
	ModifierNoise
)

func (m Modifier) String() string {
	switch m {
	case ModifierAccent:
		return "accent"
	case ModifierNoise:
		return "noise"
	default:
		return "clean"
	}
}

// Key is the structured form of a category key.
type Key struct {
	Language string
	Numbers  bool
	Modifier Modifier
	Accent   string
	Noise    int
}

// Clean returns the baseline key for language.
func Clean(language string) Key {
	return Key{Language: language}
}

// WithAccent returns a copy of k qualified by accent.
func (k Key) WithAccent(accent string) Key {
	k.Modifier = ModifierAccent
	k.Accent = accent
	k.Noise = 0
	return k
}

// WithNoise returns a copy of k qualified by a noise level percentage.
func (k Key) WithNoise(level int) Key {
	k.Modifier = ModifierNoise
	k.Noise = level
	k.Accent = ""
	return k
}

// LanguageFolder renders the language part, including the numbers variant.
func (k Key) LanguageFolder() string {
	if k.Numbers {
		return k.Language + numbersSuffix
	}
	return k.Language
}

// ModifierFolder renders the modifier part, or "" for a clean key.
func (k Key) ModifierFolder() string {
	switch k.Modifier {
	case ModifierAccent:
		return accentPrefix + k.Accent
	case ModifierNoise:
		return noisePrefix + strconv.Itoa(k.Noise)
	default:
		return ""
	}
}

// String renders the legacy key form.
func (k Key) String() string {
	if mod := k.ModifierFolder(); mod != "" {
		return k.LanguageFolder() + separator + mod
	}
	return k.LanguageFolder()
}

// Validate reports whether k can be rendered and parsed back unchanged.
func (k Key) Validate() error {
	lang := strings.TrimSpace(k.Language)
	if lang == "" || lang != k.Language {
		return fmt.Errorf("%w: language %q", ErrInvalidKey, k.Language)
	}
	if strings.ContainsAny(k.Language, `\/`) || strings.HasSuffix(k.Language, numbersSuffix) {
		return fmt.Errorf("%w: language %q", ErrInvalidKey, k.Language)
	}
	switch k.Modifier {
	case ModifierNone:
	case ModifierAccent:
		if k.Accent == "" || strings.ContainsAny(k.Accent, `\/`) {
			return fmt.Errorf("%w: accent %q", ErrInvalidKey, k.Accent)
		}
	case ModifierNoise:
		if k.Noise < 0 {
			return fmt.Errorf("%w: noise level %d", ErrInvalidKey, k.Noise)
		}
	default:
		return fmt.Errorf("%w: modifier %d", ErrInvalidKey, k.Modifier)
	}
	return nil
}

// Parse decodes the legacy key form. Both `\` and `/` separate the modifier.
func Parse(value string) (Key, error) {
	value = strings.TrimSpace(value)
	language, modifier, _ := strings.Cut(strings.ReplaceAll(value, "/", separator), separator)
	return FromFolders(language, modifier)
}

// FromFolders builds a key from a test-set language folder and an optional
// modifier folder (accent_<name> or noisy_<level>).
func FromFolders(languageFolder, modifierFolder string) (Key, error) {
	languageFolder = strings.TrimSpace(languageFolder)
	modifierFolder = strings.TrimSpace(modifierFolder)

	var key Key
	key.Language = languageFolder
	if strings.HasSuffix(languageFolder, numbersSuffix) {
		key.Numbers = true
		key.Language = strings.TrimSuffix(languageFolder, numbersSuffix)
	}

	switch {
	case modifierFolder == "":
	case strings.HasPrefix(strings.ToLower(modifierFolder), accentPrefix):
		key = key.WithAccent(modifierFolder[len(accentPrefix):])
	case strings.HasPrefix(strings.ToLower(modifierFolder), noisePrefix):
		level, err := strconv.Atoi(modifierFolder[len(noisePrefix):])
		if err != nil {
			return Key{}, fmt.Errorf("%w: noise level in %q", ErrInvalidKey, modifierFolder)
		}
		key = key.WithNoise(level)
	default:
		return Key{}, fmt.Errorf("%w: unknown modifier %q", ErrInvalidKey, modifierFolder)
	}

	if err := key.Validate(); err != nil {
		return Key{}, err
	}
	return key, nil
}

// Compare orders keys by language, numbers variant, modifier kind, then the
// modifier value. Noise levels sort numerically.
func Compare(a, b Key) int {
	if c := cmp.Compare(a.Language, b.Language); c != 0 {
		return c
	}
	if a.Numbers != b.Numbers {
		if a.Numbers {
			return 1
		}
		return -1
	}
	if c := cmp.Compare(a.Modifier, b.Modifier); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Noise, b.Noise); c != 0 {
		return c
	}
	return cmp.Compare(a.Accent, b.Accent)
}
