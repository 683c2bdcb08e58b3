package rate

import "errors"

var (
	ErrRateLimited      = errors.New("rate: too many failed attempts")
	ErrRedisUnavailable = errors.New("rate: counter backend unavailable")
)
