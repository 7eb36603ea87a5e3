package bench

import "github.com/haormj/gpubench/accelerated"

// SetReference swaps the host ripple backend and returns a restore func.
func SetReference(b accelerated.Backend) func() {
	prev := reference
	reference = b

	return func() { reference = prev }
}
