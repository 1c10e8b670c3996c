package model

import "time"

var epoch = time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

func secs(n int64) time.Duration { return time.Duration(n) * time.Second }
