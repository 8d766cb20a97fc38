// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"

	"github.com/coreos/go-systemd/v22/activation"
	"golang.org/x/sys/unix"
)

var (
	// ErrMissingSocket is returned when the supervisor passed no
	// descriptors.
	ErrMissingSocket = errors.New("missing socket: no socket-activation descriptor was passed")

	// ErrTooManySockets is returned when more than one descriptor was
	// passed. The server serves exactly one endpoint.
	ErrTooManySockets = errors.New("too many sockets: expected exactly one socket-activation descriptor")
)

// HandleSource yields the descriptors inherited from a supervisor.
// Ownership of every returned file passes to the caller.
type HandleSource interface {
	Handles() ([]*os.File, error)
}

// SystemdHandles reads descriptors using the systemd socket activation
// protocol (LISTEN_PID, LISTEN_FDS).
type SystemdHandles struct {
	// UnsetEnvironment clears LISTEN_PID, LISTEN_FDS and LISTEN_FDNAMES
	// after reading so the builder does not inherit them.
	UnsetEnvironment bool
}

// Handles returns the inherited descriptors, starting at fd 3. A
// process started without socket activation gets an empty slice.
func (s SystemdHandles) Handles() ([]*os.File, error) {
	return activation.Files(s.UnsetEnvironment), nil
}

// Acquirer turns the supervisor's single descriptor into one
// connection.
type Acquirer struct {
	source HandleSource
	logger *slog.Logger
}

// NewAcquirer returns an Acquirer drawing descriptors from source.
func NewAcquirer(source HandleSource, logger *slog.Logger) *Acquirer {
	return &Acquirer{source: source, logger: logger}
}

// Acquire validates that exactly one descriptor was inherited and
// returns the connection it represents. A listening socket has one
// connection accepted from it and is then closed; a connected socket
// is returned as is. Acquire blocks until a client connects.
func (a *Acquirer) Acquire() (net.Conn, error) {
	files, err := a.source.Handles()
	if err != nil {
		return nil, fmt.Errorf("reading inherited descriptors: %w", err)
	}

	switch len(files) {
	case 0:
		return nil, ErrMissingSocket
	case 1:
	default:
		for _, file := range files {
			file.Close()
		}
		return nil, fmt.Errorf("%w (got %d)", ErrTooManySockets, len(files))
	}

	// net.FileConn and net.FileListener duplicate the descriptor, so
	// the original is always closed here.
	file := files[0]
	defer file.Close()

	listening, err := inspectSocket(file)
	if err != nil {
		return nil, err
	}

	if !listening {
		a.logger.Debug("inherited descriptor is a connected stream", "name", file.Name())
		conn, err := net.FileConn(file)
		if err != nil {
			return nil, fmt.Errorf("wrapping inherited connection: %w", err)
		}
		return conn, nil
	}

	listener, err := net.FileListener(file)
	if err != nil {
		return nil, fmt.Errorf("wrapping inherited listener: %w", err)
	}
	defer listener.Close()

	a.logger.Debug("accepting one connection", "address", listener.Addr().String())
	conn, err := listener.Accept()
	if err != nil {
		return nil, fmt.Errorf("accepting connection: %w", err)
	}
	return conn, nil
}

// inspectSocket reports whether file is a listening stream socket.
// Datagram sockets and non-sockets are rejected.
func inspectSocket(file *os.File) (listening bool, err error) {
	raw, err := file.SyscallConn()
	if err != nil {
		return false, fmt.Errorf("inherited descriptor %s: %w", file.Name(), err)
	}

	var socketType, acceptConn int
	var optErr error
	controlErr := raw.Control(func(fd uintptr) {
		socketType, optErr = unix.GetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_TYPE)
		if optErr != nil {
			return
		}
		acceptConn, optErr = unix.GetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_ACCEPTCONN)
	})
	if controlErr != nil {
		return false, fmt.Errorf("inherited descriptor %s: %w", file.Name(), controlErr)
	}
	if optErr != nil {
		return false, fmt.Errorf("inherited descriptor %s is not a socket: %w", file.Name(), optErr)
	}
	if socketType != unix.SOCK_STREAM {
		return false, fmt.Errorf("inherited descriptor %s is not a stream socket (type %d)", file.Name(), socketType)
	}
	return acceptConn != 0, nil
}
