package testduels

import "time"

// HTTP status code constants.
const (
	StatusOK       = 200
	StatusCreated  = 201
	StatusAccepted = 202
)

// Runner configuration constants.
const (
	RepositionSettleDelay = 3 * time.Second
	PercentageMultiplier  = 100
)
