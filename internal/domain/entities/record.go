package entities

import (
	"strconv"
	"strings"
	"time"
)

// SchemaVersion is the version tag written into the consolidated index
const SchemaVersion = "4.1.0"

// SlideRecord is the serialized form of a slide, shared by the per-slide
// file and the entries of the consolidated index
type SlideRecord struct {
	SlideID    int                    `json:"slide_id" yaml:"slide_id"`
	Title      string                 `json:"title" yaml:"title"`
	Content    string                 `json:"content" yaml:"content"`
	Layout     string                 `json:"layout" yaml:"layout"`
	ConfigData map[string]interface{} `json:"config_data" yaml:"config_data"`
	ExtraData  map[string]interface{} `json:"extra_data" yaml:"extra_data"`
	CreatedAt  string                 `json:"created_at" yaml:"created_at"`
	ModifiedAt string                 `json:"modified_at" yaml:"modified_at"`
}

// SlideIndex is the consolidated snapshot of every slide
type SlideIndex struct {
	Slides        map[string]SlideRecord `json:"slides" yaml:"slides"`
	ExportedAt    string                 `json:"exported_at" yaml:"exported_at"`
	Version       string                 `json:"version" yaml:"version"`
	TotalSlides   int                    `json:"total_slides" yaml:"total_slides"`
	BackupEnabled bool                   `json:"backup_enabled" yaml:"backup_enabled"`
}

// Record serializes the slide
func (s *Slide) Record() SlideRecord {
	c := s.Clone()
	if c.ConfigData == nil {
		c.ConfigData = make(map[string]interface{})
	}
	if c.ExtraData == nil {
		c.ExtraData = make(map[string]interface{})
	}
	return SlideRecord{
		SlideID:    c.ID,
		Title:      c.Title,
		Content:    c.Content,
		Layout:     string(c.Layout),
		ConfigData: c.ConfigData,
		ExtraData:  c.ExtraData,
		CreatedAt:  FormatTimestamp(c.CreatedAt),
		ModifiedAt: FormatTimestamp(c.ModifiedAt),
	}
}

// SlideFromRecord rebuilds a slide from its serialized form. Missing fields
// fall back to defaults; image cleanup is left to the caller.
func SlideFromRecord(paths Paths, rec SlideRecord) *Slide {
	id := rec.SlideID
	if id == 0 {
		id = 1
	}
	layout := Layout(rec.Layout)
	if layout == "" {
		layout = LayoutText
	}

	config := deepCopyMap(rec.ConfigData)
	if config == nil {
		config = make(map[string]interface{})
	}
	extra := deepCopyMap(rec.ExtraData)
	if extra == nil {
		extra = make(map[string]interface{})
	}

	now := time.Now()
	s := &Slide{
		ID:         id,
		Title:      rec.Title,
		Content:    rec.Content,
		Layout:     layout,
		ConfigData: config,
		ExtraData:  extra,
		CreatedAt:  ParseTimestamp(rec.CreatedAt, now),
		ModifiedAt: ParseTimestamp(rec.ModifiedAt, now),
		paths:      paths,
	}
	_ = s.EnsureDirectory()

	return s
}

// NewSlideIndex builds the consolidated index of the given slides
func NewSlideIndex(slides []*Slide, exportedAt time.Time, backupEnabled bool) SlideIndex {
	idx := SlideIndex{
		Slides:        make(map[string]SlideRecord, len(slides)),
		ExportedAt:    FormatTimestamp(exportedAt),
		Version:       SchemaVersion,
		TotalSlides:   len(slides),
		BackupEnabled: backupEnabled,
	}
	for _, s := range slides {
		idx.Slides[strconv.Itoa(s.ID)] = s.Record()
	}
	return idx
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// FormatTimestamp writes a timestamp in RFC 3339 with fractional seconds
func FormatTimestamp(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

// ParseTimestamp accepts RFC 3339 or naive ISO-8601 timestamps. Naive values
// are read in local time. Anything unparseable yields fallback.
func ParseTimestamp(value string, fallback time.Time) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	for i, layout := range timestampLayouts {
		var (
			t   time.Time
			err error
		)
		if i == 0 {
			t, err = time.Parse(layout, value)
		} else {
			t, err = time.ParseInLocation(layout, value, time.Local)
		}
		if err == nil {
			return t
		}
	}
	return fallback
}
