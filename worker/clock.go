package worker

import "time"

// Clock abstracts the worker's time source so tests can drive scheduling
// deterministically instead of racing the wall clock, mirroring the
// host module's own clockWrapper seam.
type Clock interface {
	NowUs() uint64
}

type realClock struct{}

func (realClock) NowUs() uint64 {
	return uint64(time.Now().UnixMicro())
}
