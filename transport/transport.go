// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/bureau-foundation/escapehatch/lib/config"
)

// ErrUnknownServerLocation is returned by Select when neither a socket
// path nor a network address is configured.
var ErrUnknownServerLocation = errors.New("server location unknown: set " +
	config.EnvSocketPath + " or " + config.EnvNetworkAddress)

// Dialer opens the client's connection to the server.
type Dialer interface {
	// DialContext opens a stream connection to address. The address
	// format is dialer-specific (a socket path or host:port).
	DialContext(ctx context.Context, address string) (net.Conn, error)
}

// Compile-time interface checks.
var (
	_ Dialer = UnixDialer{}
	_ Dialer = TCPDialer{}
)

// Target is a resolved server location.
type Target struct {
	// Network is "unix" or "tcp".
	Network string

	// Address is the socket path or host:port.
	Address string
}

// String returns "network:address" for logging.
func (t Target) String() string {
	return t.Network + ":" + t.Address
}

// Dialer returns the dialer for this target's network.
func (t Target) Dialer() Dialer {
	if t.Network == "unix" {
		return UnixDialer{}
	}
	return TCPDialer{}
}

// Select chooses where the client connects:
//
//	socket path | network address | result
//	set         | set             | unix (path takes priority)
//	set         | unset           | unix
//	unset       | set             | tcp
//	unset       | unset           | ErrUnknownServerLocation
func Select(cfg *config.Config) (Target, error) {
	if !cfg.HasServerLocation() {
		return Target{}, ErrUnknownServerLocation
	}
	if cfg.SocketPath != "" {
		return Target{Network: "unix", Address: cfg.SocketPath}, nil
	}
	return Target{Network: "tcp", Address: cfg.NetworkAddress}, nil
}

// Connect selects a target from cfg and dials it.
func Connect(ctx context.Context, cfg *config.Config) (net.Conn, Target, error) {
	target, err := Select(cfg)
	if err != nil {
		return nil, Target{}, err
	}

	conn, err := target.Dialer().DialContext(ctx, target.Address)
	if err != nil {
		return nil, target, fmt.Errorf("connecting to %s: %w", target, err)
	}
	return conn, target, nil
}

// UnixDialer connects to a Unix domain stream socket.
type UnixDialer struct{}

// DialContext connects to the socket at path.
func (UnixDialer) DialContext(ctx context.Context, path string) (net.Conn, error) {
	var dialer net.Dialer
	return dialer.DialContext(ctx, "unix", path)
}

// TCPDialer connects over TCP. No connect timeout is applied beyond
// whatever deadline ctx carries.
type TCPDialer struct{}

// DialContext connects to address (host:port).
func (TCPDialer) DialContext(ctx context.Context, address string) (net.Conn, error) {
	var dialer net.Dialer
	return dialer.DialContext(ctx, "tcp", address)
}
