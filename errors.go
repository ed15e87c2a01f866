package refreshguard

import "errors"

var (
	// ErrTokenNotFound is an exported constant or variable used by the rotation engine.
	ErrTokenNotFound = errors.New("token not found")
	// ErrTokenInvalid is an exported constant or variable used by the rotation engine.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenReplayDetected is an exported constant or variable used by the rotation engine.
	ErrTokenReplayDetected = errors.New("token replay detected")
	// ErrEngineNotReady is an exported constant or variable used by the rotation engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
