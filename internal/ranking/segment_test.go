package ranking

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSegment(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"two words", "Google Chrome", []string{"google", "chrome"}},
		{"camel case", "OneDrive", []string{"one", "drive"}},
		{"hyphen", "Wi-Fi Settings", []string{"wi", "fi", "settings"}},
		{"mixed runs", "  Visual   Studio--Code ", []string{"visual", "studio", "code"}},
		{"all caps", "VLC", []string{"v", "l", "c"}},
		{"leading lower", "iPhone Backup", []string{"i", "phone", "backup"}},
		{"tab separated", "Notes\tApp", []string{"notes", "app"}},
		{"digits stay", "Photoshop 2024", []string{"photoshop", "2024"}},
		{"empty", "", []string{}},
		{"separators only", " - -  ", []string{}},
		{"non-ascii capitals do not split", "ÉcoleÉté", []string{"écoleété"}},
		{"ascii capital after non-ascii", "appÜberView", []string{"appüber", "view"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Segment(tt.in))
		})
	}
}

func TestSegmentIsOrderedSubsequence(t *testing.T) {
	names := []string{
		"Google Chrome", "Visual Studio Code", "OneDrive", "macOS-Ventura Installer",
		"XMLHttpRequest Viewer", "a-b-c", "Ünïcode Nämes",
	}
	for _, name := range names {
		segments := Segment(name)
		assert.Equal(t, segments, Segment(name), "deterministic for %q", name)

		lowered := []rune(strings.ToLower(name))
		joined := []rune(strings.Join(segments, ""))
		i := 0
		for _, r := range lowered {
			if i < len(joined) && joined[i] == r {
				i++
			}
		}
		assert.Equal(t, len(joined), i, "segments of %q are not a subsequence of the name", name)
		for _, s := range segments {
			assert.NotEmpty(t, s)
			assert.Equal(t, strings.ToLower(s), s)
		}
	}
}

func TestNewEntry(t *testing.T) {
	e := NewEntry("apps:vscode", "Visual Studio Code")

	assert.Equal(t, "apps:vscode", e.ID)
	assert.Equal(t, "Visual Studio Code", e.Name)
	assert.Equal(t, []string{"visual", "studio", "code"}, e.Segments)
	assert.Equal(t, "visualstudiocode", e.Normalized)
}
