// Package timecode formats millisecond offsets the way ffmpeg expects them in
// -ss / -t arguments and filter expressions.
package timecode

import (
	"fmt"
	"strconv"
)

// FromMilliseconds renders ms as HH:MM:SS with a .mmm suffix when the
// millisecond part is non-zero. Negative input is not supported.
func FromMilliseconds(ms int64) string {
	seconds := ms / 1000
	minutes := seconds / 60
	hours := minutes / 60

	minutes %= 60
	seconds %= 60
	rest := ms % 1000

	label := fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	if rest != 0 {
		label += fmt.Sprintf(".%03d", rest)
	}
	return label
}

// Seconds converts ms to seconds for filter expressions such as
// between(t,a,b). The value is divided by 1000 and printed in its shortest
// form, without further rounding.
func Seconds(ms float64) string {
	return strconv.FormatFloat(ms/1000, 'f', -1, 64)
}
