// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package hatch

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/escapehatch/lib/codec"
	"github.com/bureau-foundation/escapehatch/lib/config"
	"github.com/bureau-foundation/escapehatch/lib/testutil"
	"github.com/bureau-foundation/escapehatch/transport"
)

// inheritedHandles hands the Acquirer one pre-bound listener, standing
// in for a socket-activation supervisor.
type inheritedHandles struct {
	file *os.File
}

func (h inheritedHandles) Handles() ([]*os.File, error) {
	return []*os.File{h.file}, nil
}

// runningServer is a one-shot server started in a goroutine.
type runningServer struct {
	runtimeDirectory string
	result           chan error
}

// wait returns the server's Serve result.
func (s *runningServer) wait(t *testing.T) error {
	t.Helper()
	return testutil.RequireReceive(t, s.result, 30*time.Second, "server result")
}

// prebind listens on network/address the way a supervisor would and
// returns the listener's descriptor and the address clients dial.
func prebind(t *testing.T, network, address string) (*os.File, string) {
	t.Helper()
	listener, err := net.Listen(network, address)
	if err != nil {
		t.Fatalf("listen %s %s: %v", network, address, err)
	}
	defer listener.Close()

	var file *os.File
	switch typed := listener.(type) {
	case *net.UnixListener:
		typed.SetUnlinkOnClose(false)
		file, err = typed.File()
	case *net.TCPListener:
		file, err = typed.File()
	}
	if err != nil {
		t.Fatalf("listener file: %v", err)
	}
	return file, listener.Addr().String()
}

// startServer pre-binds a socket and serves one request on it with the
// given builder. The returned config points a client at the socket.
func startServer(t *testing.T, builder string, network string, compression codec.Compression) (*runningServer, *config.Config) {
	t.Helper()

	var file *os.File
	var address string
	if network == "unix" {
		file, address = prebind(t, "unix", filepath.Join(testutil.SocketDir(t), "hatch.sock"))
	} else {
		file, address = prebind(t, "tcp", "127.0.0.1:0")
	}

	runtimeDirectory := t.TempDir()
	// Leftovers from a previous invocation must not leak into this one.
	writeFiles(t, runtimeDirectory, map[string]string{"error": "stale", "out": "stale"})

	executor, err := NewExecutor([]string{builder}, runtimeDirectory, discardLogger())
	if err != nil {
		t.Fatalf("NewExecutor() error: %v", err)
	}
	acquirer := transport.NewAcquirer(inheritedHandles{file}, discardLogger())
	server := NewServer(executor, acquirer, compression, discardLogger())

	running := &runningServer{runtimeDirectory: runtimeDirectory, result: make(chan error, 1)}
	go func() {
		running.result <- server.Serve(context.Background())
	}()

	clientConfig := config.Default()
	clientConfig.Compression = compression
	clientConfig.UnpackDirectory = filepath.Join(t.TempDir(), "tmp")
	clientConfig.Out = filepath.Join(t.TempDir(), "out")
	if network == "unix" {
		clientConfig.SocketPath = address
	} else {
		clientConfig.NetworkAddress = address
	}
	return running, clientConfig
}

func readResult(t *testing.T, cfg *config.Config, name string) (string, bool) {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(cfg.UnpackDirectory, ResultRoot, name))
	if errors.Is(err, os.ErrNotExist) {
		return "", false
	}
	if err != nil {
		t.Fatalf("reading result/%s: %v", name, err)
	}
	return string(data), true
}

func TestScenario_BuilderWritesOutput(t *testing.T) {
	for _, network := range []string{"unix", "tcp"} {
		t.Run(network, func(t *testing.T) {
			builder := testutil.WriteScript(t, `printf hello > "$out"`)
			server, cfg := startServer(t, builder, network, codec.None)

			var diagnostics bytes.Buffer
			err := NewClient(cfg, &diagnostics, discardLogger()).Run(context.Background(), []string{"build", "hello"})
			if err != nil {
				t.Fatalf("client Run() error: %v (diagnostics: %s)", err, diagnostics.String())
			}
			if err := server.wait(t); err != nil {
				t.Fatalf("server Serve() error: %v", err)
			}

			if out, _ := readResult(t, cfg, FileOut); out != "hello" {
				t.Errorf("result/out = %q, want hello", out)
			}
			if status, _ := readResult(t, cfg, FileStatusCode); status != "0" {
				t.Errorf("result/status_code = %q, want 0", status)
			}
			if _, found := readResult(t, cfg, FileError); found {
				t.Error("result/error present for a successful run")
			}

			data, err := os.ReadFile(cfg.Out)
			if err != nil {
				t.Fatalf("reading propagated $out: %v", err)
			}
			if string(data) != "hello" {
				t.Errorf("$out = %q, want hello", data)
			}
		})
	}
}

func TestScenario_DirectoryOutputWithCompression(t *testing.T) {
	builder := testutil.WriteScript(t, `mkdir -p "$out/bin" "$out/share"
printf '#!/bin/sh\necho %s\n' "$1" > "$out/bin/greet"
chmod +x "$out/bin/greet"
printf docs > "$out/share/readme"
echo "built $1"`)

	for _, compression := range []codec.Compression{codec.Zstd, codec.LZ4} {
		t.Run(compression.String(), func(t *testing.T) {
			server, cfg := startServer(t, builder, "unix", compression)

			var diagnostics bytes.Buffer
			if err := NewClient(cfg, &diagnostics, discardLogger()).Run(context.Background(), []string{"hi"}); err != nil {
				t.Fatalf("client Run() error: %v", err)
			}
			if err := server.wait(t); err != nil {
				t.Fatalf("server Serve() error: %v", err)
			}

			if !strings.Contains(diagnostics.String(), "STDOUT:\nbuilt hi\n") {
				t.Errorf("diagnostics = %q, want builder stdout", diagnostics.String())
			}

			greet, err := os.ReadFile(filepath.Join(cfg.Out, "bin", "greet"))
			if err != nil {
				t.Fatalf("reading propagated greet: %v", err)
			}
			if string(greet) != "#!/bin/sh\necho hi\n" {
				t.Errorf("greet = %q", greet)
			}
			info, err := os.Stat(filepath.Join(cfg.Out, "bin", "greet"))
			if err != nil {
				t.Fatalf("stat greet: %v", err)
			}
			if info.Mode().Perm()&0o100 == 0 {
				t.Errorf("greet mode = %v, want executable", info.Mode())
			}
		})
	}
}

func TestScenario_NonzeroExit(t *testing.T) {
	builder := testutil.WriteScript(t, `echo "compilation failed" >&2; exit 3`)
	server, cfg := startServer(t, builder, "unix", codec.None)

	var diagnostics bytes.Buffer
	err := NewClient(cfg, &diagnostics, discardLogger()).Run(context.Background(), []string{"build"})
	if serveErr := server.wait(t); serveErr != nil {
		t.Fatalf("server Serve() error: %v", serveErr)
	}

	var commandErr *CommandError
	if !errors.As(err, &commandErr) {
		t.Fatalf("client error = %v, want *CommandError", err)
	}
	if commandErr.Kind != KindExitedNonzero || commandErr.Code != 3 {
		t.Errorf("CommandError = %+v, want exited nonzero with code 3", commandErr)
	}
	if !strings.Contains(diagnostics.String(), "ESCAPE HATCH COMMAND EXITED WITH STATUS 3") {
		t.Errorf("diagnostics = %q, want exit status", diagnostics.String())
	}
	if !strings.Contains(diagnostics.String(), "STDERR:\ncompilation failed\n") {
		t.Errorf("diagnostics = %q, want builder stderr", diagnostics.String())
	}
	if exists(t, cfg.Out) {
		t.Error("$out propagated for a failed build")
	}
}

func TestScenario_NonzeroExitDoesNotPropagate(t *testing.T) {
	builder := testutil.WriteScript(t, `printf partial > "$out"; exit 3`)
	server, cfg := startServer(t, builder, "unix", codec.None)

	err := NewClient(cfg, &bytes.Buffer{}, discardLogger()).Run(context.Background(), []string{"build"})
	if serveErr := server.wait(t); serveErr != nil {
		t.Fatalf("server Serve() error: %v", serveErr)
	}
	if err == nil {
		t.Fatal("client succeeded for a failed build")
	}

	if out, found := readResult(t, cfg, FileOut); !found || out != "partial" {
		t.Errorf("result/out = %q (found %v), want partial", out, found)
	}
	if exists(t, cfg.Out) {
		t.Error("$out propagated for a failed build")
	}
}

func TestScenario_BuilderMissing(t *testing.T) {
	builder := filepath.Join(t.TempDir(), "no-such-builder")
	server, cfg := startServer(t, builder, "unix", codec.None)

	var diagnostics bytes.Buffer
	err := NewClient(cfg, &diagnostics, discardLogger()).Run(context.Background(), []string{"build"})
	if serveErr := server.wait(t); serveErr != nil {
		t.Fatalf("server Serve() error: %v", serveErr)
	}

	var commandErr *CommandError
	if !errors.As(err, &commandErr) || commandErr.Kind != KindRunFailed {
		t.Fatalf("client error = %v, want command run failed", err)
	}
	if !strings.Contains(diagnostics.String(), "FAILED TO RUN ESCAPE HATCH COMMAND:") {
		t.Errorf("diagnostics = %q, want launch failure", diagnostics.String())
	}

	message, found := readResult(t, cfg, FileError)
	if !found || !strings.Contains(message, "no-such-builder") {
		t.Errorf("result/error = %q (found %v), want a message naming the builder", message, found)
	}
	if _, found := readResult(t, cfg, FileStatusCode); found {
		t.Error("result/status_code present for a launch failure")
	}
	if _, found := readResult(t, cfg, FileOut); found {
		t.Error("stale result/out from the runtime directory was archived")
	}
}

func TestScenario_InvalidUTF8ArgumentsFail(t *testing.T) {
	builder := testutil.WriteScript(t, `printf hello > "$out"`)
	server, cfg := startServer(t, builder, "unix", codec.None)

	var diagnostics bytes.Buffer
	err := NewClient(cfg, &diagnostics, discardLogger()).Run(context.Background(), []string{"\xff\xfe"})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("client error = %v, want ErrInvalidRequest", err)
	}
	if exists(t, cfg.Out) {
		t.Error("$out propagated for a rejected request")
	}

	// The client never connected; release the waiting server.
	conn, dialErr := net.Dial("unix", cfg.SocketPath)
	if dialErr != nil {
		t.Fatalf("dial: %v", dialErr)
	}
	conn.Close()
	if serveErr := server.wait(t); !errors.Is(serveErr, ErrUnterminatedRequest) {
		t.Fatalf("server Serve() error = %v, want ErrUnterminatedRequest", serveErr)
	}
}

// A server that rejects the request hangs up without a result; the
// client must fail rather than report success with nothing to show.
func TestScenario_ServerHangsUpWithoutResult(t *testing.T) {
	builder := testutil.WriteScript(t, `printf hello > "$out"`)
	server, cfg := startServer(t, builder, "unix", codec.None)

	client := NewClient(cfg, &bytes.Buffer{}, discardLogger())
	conn, err := net.Dial("unix", cfg.SocketPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Bypass client-side validation to send what the server rejects.
	if _, err := conn.Write([]byte("\xff\xfe\x00")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if serveErr := server.wait(t); !errors.Is(serveErr, ErrInvalidRequest) {
		t.Fatalf("server Serve() error = %v, want ErrInvalidRequest", serveErr)
	}

	err = client.receive(conn)
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("client error = %v, want ErrEmptyResponse", err)
	}
	if exists(t, cfg.Out) {
		t.Error("$out propagated without a result")
	}
}

func TestScenario_NoArgs(t *testing.T) {
	cfg := config.Default()
	cfg.SocketPath = "/unused"
	if err := NewClient(cfg, &bytes.Buffer{}, discardLogger()).Run(context.Background(), nil); !errors.Is(err, ErrNoArgs) {
		t.Fatalf("Run(nil) error = %v, want ErrNoArgs", err)
	}
}

func TestScenario_UnknownServerLocation(t *testing.T) {
	err := NewClient(config.Default(), &bytes.Buffer{}, discardLogger()).Run(context.Background(), []string{"build"})
	if !errors.Is(err, transport.ErrUnknownServerLocation) {
		t.Fatalf("Run() error = %v, want ErrUnknownServerLocation", err)
	}
}

// A request the server cannot decode never reaches the builder, so
// neither status_code nor error is recorded.
func TestServer_InvalidRequestRecordsNothing(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "ran")
	builder := testutil.WriteScript(t, `touch "`+marker+`"`)
	server, cfg := startServer(t, builder, "unix", codec.None)

	conn, err := net.Dial("unix", cfg.SocketPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if _, err := conn.Write([]byte("build \xff\x00")); err != nil {
		t.Fatalf("write: %v", err)
	}
	defer conn.Close()

	if err := server.wait(t); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("server Serve() error = %v, want ErrInvalidRequest", err)
	}

	entries, err := os.ReadDir(server.runtimeDirectory)
	if err != nil {
		t.Fatalf("reading runtime directory: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("runtime directory has %d entries after a rejected request, want 0", len(entries))
	}
	if exists(t, marker) {
		t.Error("builder ran for an invalid request")
	}
}

func TestServer_HandleRecordsExactlyOneOutcome(t *testing.T) {
	tests := map[string]string{
		"completed": testutil.WriteScript(t, `exit 0`),
		"failed":    filepath.Join(t.TempDir(), "missing"),
	}

	for name, builder := range tests {
		t.Run(name, func(t *testing.T) {
			runtimeDirectory := t.TempDir()
			executor, err := NewExecutor([]string{builder}, runtimeDirectory, discardLogger())
			if err != nil {
				t.Fatalf("NewExecutor() error: %v", err)
			}
			server := NewServer(executor, nil, codec.None, discardLogger())

			conn := &loopback{request: bytes.NewBufferString("x\x00")}
			if err := server.Handle(context.Background(), conn); err != nil {
				t.Fatalf("Handle() error: %v", err)
			}

			hasStatus := exists(t, filepath.Join(runtimeDirectory, FileStatusCode))
			hasError := exists(t, filepath.Join(runtimeDirectory, FileError))
			if hasStatus == hasError {
				t.Errorf("status_code present = %v, error present = %v; want exactly one", hasStatus, hasError)
			}
			if conn.response.Len() == 0 {
				t.Error("no archive written")
			}
		})
	}
}

// loopback is an io.ReadWriter with separate request and response
// buffers.
type loopback struct {
	request  *bytes.Buffer
	response bytes.Buffer
}

func (l *loopback) Read(p []byte) (int, error)  { return l.request.Read(p) }
func (l *loopback) Write(p []byte) (int, error) { return l.response.Write(p) }
