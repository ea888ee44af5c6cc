//go:build !unix && !windows

package transport

import "net"

func listenConfig() *net.ListenConfig {
	return &net.ListenConfig{}
}
