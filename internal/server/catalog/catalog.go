// Package catalog serves the content metadata the mobile client downloads
// after signing in (locales, lessons, recognition models) and short-lived
// presigned links to the asset blobs in object storage.
package catalog

import (
	"fmt"
	"strings"
)

// DefaultLocale is used when a listing request names no locale.
const DefaultLocale = "pt_BR"

type Locale struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type Lesson struct {
	ID              int    `json:"id"`
	Locale          string `json:"locale"`
	Title           string `json:"title"`
	DurationSeconds int    `json:"duration_seconds"`
}

type Model struct {
	ID       string `json:"id"`
	Version  string `json:"version"`
	Locale   string `json:"locale"`
	URL      string `json:"url"`
	Checksum string `json:"checksum"`
	Size     int64  `json:"size"`
}

var locales = []Locale{
	{Code: "pt_BR", Name: "Português (BR)"},
}

var lessonTitles = []struct {
	title    string
	duration int
}{
	{"Saudações", 30},
	{"Alfabeto", 45},
}

func (s *Service) Locales() []Locale {
	out := make([]Locale, len(locales))
	copy(out, locales)
	return out
}

func (s *Service) Lessons(locale string) []Lesson {
	locale = normalizeLocale(locale)

	out := make([]Lesson, 0, len(lessonTitles))
	for i, l := range lessonTitles {
		out = append(out, Lesson{ID: i + 1, Locale: locale, Title: l.title, DurationSeconds: l.duration})
	}
	return out
}

func (s *Service) Models(locale string) []Model {
	locale = normalizeLocale(locale)

	return []Model{{
		ID:       "model_" + strings.ToLower(locale) + "_v1",
		Version:  "1.0.0",
		Locale:   locale,
		URL:      fmt.Sprintf("%s/models/%s/model_v1.tflite", s.modelsBaseURL, locale),
		Checksum: "abc123",
		Size:     4200000,
	}}
}

func normalizeLocale(locale string) string {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return DefaultLocale
	}
	return locale
}
