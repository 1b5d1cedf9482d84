package web

import (
	"math"
	"strconv"
	"strings"
)

// Sparkline dimensions used by the trader cards.
const (
	SparkWidth  = 320
	SparkHeight = 80
)

// Sparkline maps values onto an SVG polyline "points" attribute spanning
// width x height. The highest value touches the top edge and the lowest the
// bottom; a flat series is drawn across the vertical middle.
func Sparkline(values []float64, width, height float64) string {
	if len(values) == 0 {
		return ""
	}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	step := 0.0
	if len(values) > 1 {
		step = width / float64(len(values)-1)
	}

	var b strings.Builder
	for i, v := range values {
		y := height / 2
		if hi > lo {
			y = height - (v-lo)/(hi-lo)*height
		}
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.FormatFloat(float64(i)*step, 'f', 2, 64))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(y, 'f', 2, 64))
	}
	return b.String()
}
