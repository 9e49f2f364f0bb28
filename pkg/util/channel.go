package util

import (
	"fmt"
	"math"

	"github.com/norasector/nrfjam/pkg/channels"
)

// ChannelRange returns the lowest and highest channel in chs. Both are zero
// when chs is empty.
func ChannelRange(chs ...uint8) (low, high uint8) {
	if len(chs) == 0 {
		return 0, 0
	}
	low = math.MaxUint8
	for _, ch := range chs {
		if ch < low {
			low = ch
		}
		if ch > high {
			high = ch
		}
	}
	return
}

// CenterFrequencyAndSpan gives the center and width in MHz covered by the
// inclusive channel range.
func CenterFrequencyAndSpan(low, high uint8) (centerMHz float64, spanMHz int) {
	centerMHz = float64(channels.ChannelFrequencyMHz(low)+channels.ChannelFrequencyMHz(high)) / 2
	spanMHz = int(high) - int(low) + 1
	return
}

func MHzToString(mhz int) string {
	return fmt.Sprintf("%d MHz", mhz)
}
