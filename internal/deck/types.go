package deck

// Slide is the extracted content of a single presentation slide.
type Slide struct {
	Index   int      `json:"index"`
	Title   string   `json:"title"`
	Bullets []string `json:"bullets"`
	Notes   string   `json:"notes,omitempty"`

	style slideStyle
}

// slideStyle captures the typography observed on a slide. It feeds the
// presentation quality metrics and never leaves the package as-is.
type slideStyle struct {
	// FontSizes holds every explicit run size in points.
	FontSizes []float64
	// Fonts holds every explicit latin typeface name.
	Fonts []string
	// TextColors holds explicit run colors as RRGGBB hex.
	TextColors []string
	// Background is the slide background color as RRGGBB hex, when set.
	Background string
	// TextArea is the summed area of text frames in EMU squared.
	TextArea int64
}

// Deck is a parsed presentation.
type Deck struct {
	Slides []Slide `json:"slides"`
	// SlideArea is the slide canvas area in EMU squared.
	SlideArea int64 `json:"-"`
	// HasVBA reports whether the package embeds a VBA project.
	HasVBA bool `json:"-"`
}

// CharCount returns the number of characters of visible text on the slide.
func (s *Slide) CharCount() int {
	n := len(s.Title)
	for _, b := range s.Bullets {
		n += len(b)
	}
	return n
}
