package game

import "errors"

// Every failure below is an expected, user-recoverable outcome: the engine
// leaves the player record untouched and the handler turns it into a
// message. Only repository faults propagate as-is.
var (
	ErrInsufficientFunds  = errors.New("not enough money")
	ErrInsufficientEnergy = errors.New("not enough energy")
	ErrAlreadyBusy        = errors.New("another activity is already in progress")
	ErrNotResting         = errors.New("player is not resting")
	ErrMismatch           = errors.New("invalid skillpoint allocation")
	ErrStaleState         = errors.New("player state changed, re-read and retry")
	ErrNotOnboarded       = errors.New("tutorial not completed")
	ErrUnknownStat        = errors.New("unknown stat")
)
