//go:build !windows

package terminal

func enableVirtualTerminal() bool {
	return false
}
