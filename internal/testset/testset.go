// Package testset scans the curated evaluation tree:
//
//	<root>/<suite>/<LanguageFolder>[/<modifier>]/<stem>.vtt
//	<root>/<suite>/<LanguageFolder>[/<modifier>]/<stem>.wav
//	<root>/<suite>/<LanguageFolder>[/<modifier>]/<stem>.<method>.txt
//
// The language and modifier folders name the item's category.
package testset

import (
	"cmp"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"sttbench/internal/batch"
	"sttbench/internal/category"
)

// DefaultAudioExtensions lists the audio files sent to providers.
var DefaultAudioExtensions = []string{".wav", ".mp3", ".flac", ".aac"}

// Layout names the file extensions of a test set.
type Layout struct {
	AudioExtensions []string
	ReferenceExt    string
	HypothesisExt   string
}

func (l Layout) withDefaults() Layout {
	if len(l.AudioExtensions) == 0 {
		l.AudioExtensions = DefaultAudioExtensions
	}
	if l.ReferenceExt == "" {
		l.ReferenceExt = ".vtt"
	}
	if l.HypothesisExt == "" {
		l.HypothesisExt = ".txt"
	}
	return l
}

// Item is one test utterance.
type Item struct {
	Suite     string
	Key       category.Key
	Dir       string
	Stem      string
	Audio     string
	Reference string
	// Hypotheses maps method name to hypothesis file.
	Hypotheses map[string]string
}

// ID identifies the item relative to the test-set root.
func (i Item) ID() string {
	return strings.Join([]string{i.Suite, i.Key.String(), i.Stem}, "/")
}

// HypothesisPath returns where method's hypothesis for the item lives.
func (i Item) HypothesisPath(method, ext string) string {
	return filepath.Join(i.Dir, i.Stem+"."+method+ext)
}

// Methods returns the hypothesis method names in sorted order.
func (i Item) Methods() []string {
	methods := make([]string, 0, len(i.Hypotheses))
	for m := range i.Hypotheses {
		methods = append(methods, m)
	}
	slices.Sort(methods)
	return methods
}

// Scan walks root and returns items sorted by ID. Directories whose names do
// not form a category are reported as failures and skipped.
func Scan(root string, layout Layout) ([]Item, []batch.Failure, error) {
	layout = layout.withDefaults()
	items := make(map[string]*Item)
	var failures []batch.Failure
	badDirs := make(map[string]bool)

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) != 3 && len(parts) != 4 {
			return nil
		}
		dir := filepath.Dir(path)
		if badDirs[dir] {
			return nil
		}
		name := parts[len(parts)-1]
		stem, method, kind := classify(name, layout)
		if kind == fileOther {
			return nil
		}

		modifier := ""
		if len(parts) == 4 {
			modifier = parts[2]
		}
		id := dir + "\x00" + stem
		item, ok := items[id]
		if !ok {
			key, err := category.FromFolders(parts[1], modifier)
			if err != nil {
				badDirs[dir] = true
				failures = append(failures, batch.Failure{File: dir, Reason: err.Error()})
				return nil
			}
			item = &Item{Suite: parts[0], Key: key, Dir: dir, Stem: stem, Hypotheses: map[string]string{}}
			items[id] = item
		}
		switch kind {
		case fileAudio:
			if item.Audio == "" {
				item.Audio = path
			}
		case fileReference:
			item.Reference = path
		case fileHypothesis:
			item.Hypotheses[method] = path
		}
		return nil
	})
	if err != nil {
		return nil, failures, fmt.Errorf("scan test set: %w", err)
	}

	out := make([]Item, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	slices.SortFunc(out, func(a, b Item) int {
		if c := cmp.Compare(a.Suite, b.Suite); c != 0 {
			return c
		}
		if c := category.Compare(a.Key, b.Key); c != 0 {
			return c
		}
		return cmp.Compare(a.Stem, b.Stem)
	})
	return out, failures, nil
}

type fileKind int

const (
	fileOther fileKind = iota
	fileAudio
	fileReference
	fileHypothesis
)

// classify splits a file name into its stem and, for hypotheses, the method.
// Hypotheses are <stem>.<method><ext>; the stem itself never has a dot.
func classify(name string, layout Layout) (string, string, fileKind) {
	if strings.HasPrefix(name, ".") {
		return "", "", fileOther
	}
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, strings.ToLower(layout.HypothesisExt)):
		base := name[:len(name)-len(layout.HypothesisExt)]
		stem, method, ok := strings.Cut(base, ".")
		if !ok || stem == "" || method == "" {
			return "", "", fileOther
		}
		return stem, method, fileHypothesis
	case strings.HasSuffix(lower, strings.ToLower(layout.ReferenceExt)):
		stem := name[:len(name)-len(layout.ReferenceExt)]
		if stem == "" || strings.Contains(stem, ".") {
			return "", "", fileOther
		}
		return stem, "", fileReference
	}
	ext := filepath.Ext(name)
	if slices.Contains(layout.AudioExtensions, strings.ToLower(ext)) {
		stem := strings.TrimSuffix(name, ext)
		if strings.Contains(stem, ".") {
			return "", "", fileOther
		}
		return stem, "", fileAudio
	}
	return "", "", fileOther
}
