package rest

import (
	"strconv"
	"time"
)

func parseID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

func secondsToDuration(s int64) time.Duration {
	if s <= 0 {
		return 0
	}
	return time.Duration(s) * time.Second
}
