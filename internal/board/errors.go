package board

import "errors"

var (
	ErrTableNotFound = errors.New("table not found")
	ErrSlotNotFound  = errors.New("time slot not found")
	ErrInvalidStatus = errors.New("invalid slot status")
)
