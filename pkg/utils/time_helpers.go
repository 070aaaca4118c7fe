package utils

import (
	"math"
	"time"
)

const day = 24 * time.Hour

// WholeDays - целое число суток между from и to, округление вниз.
func WholeDays(from, to time.Time) int {
	return int(math.Floor(float64(to.Sub(from)) / float64(day)))
}

// DaysUntil - сколько целых суток осталось от now до deadline (отрицательно, если срок прошёл).
func DaysUntil(now, deadline time.Time) int {
	return WholeDays(now, deadline)
}
