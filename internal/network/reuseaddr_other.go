//go:build !linux && !windows

package network

import "net"

// ReuseAddrListenConfig returns a plain net.ListenConfig on platforms where
// the decoy does not tune socket options.
func ReuseAddrListenConfig() net.ListenConfig {
	return net.ListenConfig{}
}
