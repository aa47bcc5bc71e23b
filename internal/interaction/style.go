package interaction

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/go-homedir"
)

// Style holds the visual options of a ring rendering.
type Style struct {
	NodeColor     string  `toml:"node_color" json:"node_color"`
	HoverColor    string  `toml:"hover_color" json:"hover_color"`
	LinkColor     string  `toml:"link_color" json:"link_color"`
	LabelColor    string  `toml:"label_color" json:"label_color"`
	Opacity       float64 `toml:"opacity" json:"opacity"`
	NodeRadius    float64 `toml:"node_radius" json:"node_radius"`
	LabelFontSize float64 `toml:"label_font_size" json:"label_font_size"`
	// LabelOffset is the distance above the node centre, in world units, at
	// which the hover label is drawn.
	LabelOffset float64 `toml:"label_offset" json:"label_offset"`
}

// DefaultStyle returns the stock dashboard palette.
func DefaultStyle() Style {
	return Style{
		NodeColor:     "#667eea",
		HoverColor:    "#ff6b6b",
		LinkColor:     "rgba(102, 126, 234, 0.3)",
		LabelColor:    "#333",
		Opacity:       1,
		NodeRadius:    5,
		LabelFontSize: 12,
		LabelOffset:   10,
	}
}

// LoadStyle reads a TOML style file on top of DefaultStyle. An empty path
// returns the defaults; a leading ~ is expanded to the home directory.
func LoadStyle(path string) (Style, error) {
	style := DefaultStyle()
	if path == "" {
		return style, nil
	}

	expanded, err := homedir.Expand(path)
	if err != nil {
		return style, fmt.Errorf("expand style path %q: %w", path, err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return style, fmt.Errorf("read style file: %w", err)
	}
	if err := toml.Unmarshal(data, &style); err != nil {
		return DefaultStyle(), fmt.Errorf("decode style file %s: %w", expanded, err)
	}
	if err := style.Validate(); err != nil {
		return DefaultStyle(), err
	}
	return style, nil
}

// Validate rejects styles a renderer cannot draw.
func (s Style) Validate() error {
	switch {
	case s.Opacity < 0 || s.Opacity > 1:
		return fmt.Errorf("style: opacity %v outside [0, 1]", s.Opacity)
	case s.NodeRadius <= 0:
		return fmt.Errorf("style: node radius must be positive, got %v", s.NodeRadius)
	case s.LabelFontSize <= 0:
		return fmt.Errorf("style: label font size must be positive, got %v", s.LabelFontSize)
	case s.NodeColor == "" || s.HoverColor == "" || s.LinkColor == "":
		return fmt.Errorf("style: colours must not be empty")
	}
	return nil
}
