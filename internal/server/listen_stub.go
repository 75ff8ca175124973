//go:build !linux
// +build !linux

package server

import (
	"context"
	"net"
)

// bindReuse falls back to a plain listener on platforms where
// SO_REUSEPORT isn't wired up (spec.md targets a Linux deployment; see
// DESIGN.md).
func bindReuse(ctx context.Context, network, addr string) (net.Listener, error) {
	var lc net.ListenConfig
	return lc.Listen(ctx, network, addr)
}
