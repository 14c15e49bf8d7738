//go:build ifmtu_debug

package wire

func init() {
	panicOnInvariant = true
}
