package ports

// Clock reports the current time at second resolution.
//
//go:generate mockgen -source=clock.go -destination=mocks/mock_clock.go -package=mocks
type Clock interface {
	// NowSec returns a monotonic timestamp in seconds.
	NowSec() int64
}
