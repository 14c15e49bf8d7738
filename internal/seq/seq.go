// Package seq hands out request sequence numbers shared by every kernel query
// in the process.
package seq

import "sync/atomic"

var counter atomic.Uint32

// Next returns a sequence number not returned before in this process, until
// the counter wraps. Zero is never returned because netlink treats it as
// "assign one for me".
func Next() uint32 {
	for {
		if n := counter.Add(1); n != 0 {
			return n
		}
	}
}
