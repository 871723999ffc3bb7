package parking

import "errors"

var (
	ErrInvalidLayout   = errors.New("invalid layout")
	ErrOutOfBounds     = errors.New("coordinate out of bounds")
	ErrNotAvailable    = errors.New("spot not available")
	ErrNotParked       = errors.New("no vehicle parked at spot")
	ErrUnreachable     = errors.New("spot unreachable from entrance")
	ErrNoPath          = errors.New("no path to spot")
	ErrLotFull         = errors.New("parking lot is full")
	ErrAlreadyParked   = errors.New("vehicle already parked")
	ErrVehicleNotFound = errors.New("vehicle not found")
)
