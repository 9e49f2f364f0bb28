package util

import "time"

func TimeOperationMicroseconds(op func()) int64 {
	start := time.Now()
	op()
	return time.Since(start).Microseconds()
}

// BoolInt maps a flag to the 0/1 integer form used in influx fields.
func BoolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
