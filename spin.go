package srcembed

import "runtime"

// The async streams hand buffer halves between the user-side thread and a
// background I/O goroutine without locks or condition variables: each side
// spins on an atomic flag the other side flips. Under steady-state throughput
// the wait is short; to stay fair when it is not, the spin yields to the
// scheduler after a bounded number of iterations.

// spinBeforeYield is the busy-iteration budget between scheduler yields.
const spinBeforeYield = 1 << 14

// spinner is a bounded busy-wait helper. The zero value is ready to use.
type spinner struct {
	n uint32
}

func (s *spinner) spin() {
	s.n++
	if s.n%spinBeforeYield == 0 {
		runtime.Gosched()
	}
}
