package main

import "time"

const (
	ShutdownTimeout = 30 * time.Second
)
