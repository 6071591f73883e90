package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
)

var (
	// ErrUnsupportedLanguage means no provider language code is configured for
	// a category language.
	ErrUnsupportedLanguage = errors.New("unsupported language")
	// ErrProvider wraps any failure reported by, or while calling, a provider.
	ErrProvider = errors.New("provider error")
)

// NoSpeech is the hypothesis written when a call succeeds with no transcript.
const NoSpeech = "No speech recognized."

// Request is one audio file to transcribe.
type Request struct {
	File     string
	Audio    []byte
	Language string
}

// Result is a provider's answer for one request.
type Result struct {
	Transcript string
	Latency    time.Duration
	// Raw is the undecoded response body, kept for audit.
	Raw []byte
}

// Provider transcribes audio.
type Provider interface {
	Name() string
	Transcribe(ctx context.Context, req Request) (Result, error)
}

// ErrorHypothesis renders the text written in place of a transcript when a
// call fails. It is scored like any other hypothesis.
func ErrorHypothesis(file, language string, err error) string {
	if errors.Is(err, ErrUnsupportedLanguage) {
		return fmt.Sprintf("Error for %s: Language code '%s' not supported by provider.", file, language)
	}
	return fmt.Sprintf("Error during API call for %s (Lang: %s): %v", file, language, err)
}

// MethodName turns a provider name into the token used in hypothesis file
// names (<stem>.<method>.txt). Anything outside [a-z0-9_-] becomes '_'.
func MethodName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return "stt"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r == '-' || r == '_':
			return r
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			return r
		default:
			return '_'
		}
	}, name)
}
