//go:build !linux

package server

import "net"

// listenConfig is a plain listener on non-Linux platforms; port reuse is
// only wired up on Linux.
func listenConfig() net.ListenConfig {
	return net.ListenConfig{}
}
