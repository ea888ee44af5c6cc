//go:build windows

package transport

import (
	"net"
	"syscall"

	"golang.org/x/sys/windows"
)

// listenConfig sets SO_REUSEADDR so a restarted server can bind its port
// while old connections linger in TIME_WAIT.
func listenConfig() *net.ListenConfig {
	return &net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			var serr error
			err := c.Control(func(fd uintptr) {
				serr = windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_REUSEADDR, 1)
			})
			if err != nil {
				return err
			}
			return serr
		},
	}
}
