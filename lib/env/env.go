// Package env reads the environment variables that tune library behavior.
package env

import (
	"os"
	"strconv"
)

func Debug() bool {
	return os.Getenv("DEBUG") != ""
}

// Timeout returns $SEQANIM_TIMEOUT in seconds when set to an integer.
func Timeout() (int, bool) {
	if s := os.Getenv("SEQANIM_TIMEOUT"); s != "" {
		i, err := strconv.ParseInt(s, 10, 64)
		if err == nil {
			return int(i), true
		}
	}
	return -1, false
}
