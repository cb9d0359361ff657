// Package sim simulates the hardware of hubs so they can run without a
// layout: a closed track with color markers, motors, battery, light and
// button.
package sim

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/brickrail/trainhub/pkg/l0/hw"
)

// Colors of markers, matching what the color sensor of a real train
// reports on LEGO tiles.
var Colors = map[string]hw.HSV{
	"yellow": {H: 51, S: 75, V: 70},
	"blue":   {H: 219, S: 80, V: 55},
	"green":  {H: 133, S: 70, V: 45},
	"red":    {H: 359, S: 85, V: 60},
}

// Background is the color of the track between markers.
var Background = hw.HSV{H: 30, S: 10, V: 20}

// DefaultMarkerWidth is the length of a marker in mm.
const DefaultMarkerWidth = 32

// Marker is a colored tile on the track at Pos mm.
type Marker struct {
	Pos   float64
	Name  string
	Color hw.HSV
}

// Track is a closed loop of Length mm.
type Track struct {
	Length      float64
	MarkerWidth float64
	Markers     []Marker
}

// ParseTrack parses a track in the form of
//
//   length:color@pos,color@pos...
//
// e.g. 3000:blue@500,red@700,blue@2000,red@2200
func ParseTrack(s string) (*Track, error) {
	parts := strings.SplitN(s, ":", 2)
	length, err := strconv.ParseFloat(parts[0], 64)
	if err != nil || length <= 0 {
		return nil, fmt.Errorf("invalid track length %q", parts[0])
	}
	t := &Track{Length: length, MarkerWidth: DefaultMarkerWidth}
	if len(parts) < 2 || parts[1] == "" {
		return t, nil
	}
	for _, item := range strings.Split(parts[1], ",") {
		tokens := strings.SplitN(item, "@", 2)
		if len(tokens) != 2 {
			return nil, fmt.Errorf("invalid marker %q", item)
		}
		color, ok := Colors[tokens[0]]
		if !ok {
			return nil, fmt.Errorf("unknown marker color %q", tokens[0])
		}
		pos, err := strconv.ParseFloat(tokens[1], 64)
		if err != nil || pos < 0 || pos >= length {
			return nil, fmt.Errorf("invalid marker position %q", tokens[1])
		}
		t.Markers = append(t.Markers, Marker{Pos: pos, Name: tokens[0], Color: color})
	}
	sort.Slice(t.Markers, func(i, j int) bool { return t.Markers[i].Pos < t.Markers[j].Pos })
	return t, nil
}

// Wrap maps pos onto the loop.
func (t *Track) Wrap(pos float64) float64 {
	pos = math.Mod(pos, t.Length)
	if pos < 0 {
		pos += t.Length
	}
	return pos
}

// MarkerAt returns the marker covering pos.
func (t *Track) MarkerAt(pos float64) (Marker, bool) {
	pos = t.Wrap(pos)
	for _, m := range t.Markers {
		if pos >= m.Pos && pos < m.Pos+t.MarkerWidth {
			return m, true
		}
	}
	return Marker{}, false
}

// ColorAt returns the color seen by a sensor above pos.
func (t *Track) ColorAt(pos float64) hw.HSV {
	if m, ok := t.MarkerAt(pos); ok {
		return m.Color
	}
	return Background
}
