package curation

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Video is one metadata entry. Language and accent are lower-cased.
type Video struct {
	ID       string `yaml:"youtube_video_id"`
	URL      string `yaml:"url"`
	Language string `yaml:"language"`
	Accent   string `yaml:"accent"`
}

var youtubeID = regexp.MustCompile(`(?:youtube\.com/(?:[^/]+/.+/|(?:v|e(?:mbed)?|shorts|live)/|.*[?&]v=)|youtu\.be/)([a-zA-Z0-9_-]{11})`)

// VideoIDFromURL extracts the 11-character video ID from a YouTube URL.
func VideoIDFromURL(url string) (string, bool) {
	m := youtubeID.FindStringSubmatch(url)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// LoadMetadata reads a YAML (or JSON) list of videos and indexes it by video
// ID. An entry without youtube_video_id falls back to the ID in its url;
// entries with neither are counted and dropped. Later entries win.
func LoadMetadata(path string) (map[string]Video, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("read metadata: %w", err)
	}
	var entries []Video
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, 0, fmt.Errorf("parse metadata %s: %w", path, err)
	}
	out := make(map[string]Video, len(entries))
	dropped := 0
	for _, v := range entries {
		v.ID = strings.TrimSpace(v.ID)
		if v.ID == "" {
			if id, ok := VideoIDFromURL(v.URL); ok {
				v.ID = id
			}
		}
		if v.ID == "" {
			dropped++
			continue
		}
		v.Language = strings.ToLower(strings.TrimSpace(v.Language))
		v.Accent = strings.ToLower(strings.TrimSpace(v.Accent))
		out[v.ID] = v
	}
	return out, dropped, nil
}
