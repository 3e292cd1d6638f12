package entities

// CanvasStatistics counts the positioned elements of a slide
type CanvasStatistics struct {
	Total  int `json:"total" yaml:"total"`
	Images int `json:"images" yaml:"images"`
	Text   int `json:"text" yaml:"text"`
}

// SlideStatistics summarizes one slide
type SlideStatistics struct {
	SlideID        int               `json:"slide_id" yaml:"slide_id"`
	TitleLength    int               `json:"title_length" yaml:"title_length"`
	ContentLength  int               `json:"content_length" yaml:"content_length"`
	ImagesCount    int               `json:"images_count" yaml:"images_count"`
	Layout         string            `json:"layout" yaml:"layout"`
	CreatedAt      string            `json:"created_at" yaml:"created_at"`
	ModifiedAt     string            `json:"modified_at" yaml:"modified_at"`
	CanvasElements *CanvasStatistics `json:"canvas_elements,omitempty" yaml:"canvas_elements,omitempty"`
}

// PresentationStatistics summarizes the whole store
type PresentationStatistics struct {
	TotalSlides        int            `json:"total_slides" yaml:"total_slides"`
	TotalImages        int            `json:"total_images" yaml:"total_images"`
	TotalContentLength int            `json:"total_content_length" yaml:"total_content_length"`
	Layouts            map[string]int `json:"layouts" yaml:"layouts"`
	SlideIDs           []int          `json:"slide_ids" yaml:"slide_ids"`
	BackupCount        int            `json:"backup_count" yaml:"backup_count"`
}

// NewPresentationStatistics aggregates the statistics of the given slides,
// which are expected in ID order
func NewPresentationStatistics(slides []*Slide) PresentationStatistics {
	stats := PresentationStatistics{
		Layouts:  make(map[string]int),
		SlideIDs: make([]int, 0, len(slides)),
	}
	for _, s := range slides {
		st := s.Statistics()
		stats.TotalSlides++
		stats.TotalImages += st.ImagesCount
		stats.TotalContentLength += st.ContentLength
		stats.Layouts[st.Layout]++
		stats.SlideIDs = append(stats.SlideIDs, s.ID)
	}
	return stats
}
