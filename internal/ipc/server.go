package ipc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/1broseidon/tagwm/internal/runtimepath"
)

// maxRequestSize bounds a single request line.
const maxRequestSize = 1 << 20

// Handler executes one request. The returned value becomes the response
// data; a non-nil error becomes an ERROR response.
type Handler interface {
	HandleRequest(ctx context.Context, req *Request) (any, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req *Request) (any, error)

func (f HandlerFunc) HandleRequest(ctx context.Context, req *Request) (any, error) {
	return f(ctx, req)
}

// ServerConfig holds configuration for the IPC server.
type ServerConfig struct {
	// SocketPath defaults to runtimepath.SocketPath().
	SocketPath string
	Handler    Handler
	Logger     *slog.Logger
	// IdleTimeout closes connections that send nothing for this long.
	IdleTimeout time.Duration
}

// Server handles IPC requests from clients
type Server struct {
	socketPath  string
	handler     Handler
	logger      *slog.Logger
	idleTimeout time.Duration

	readyOnce sync.Once
	ready     chan struct{}
}

// NewServer creates a new IPC server
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Handler == nil {
		return nil, errors.New("ipc server requires a handler")
	}
	socketPath := cfg.SocketPath
	if socketPath == "" {
		p, err := runtimepath.SocketPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
		}
		socketPath = p
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	idle := cfg.IdleTimeout
	if idle <= 0 {
		idle = 30 * time.Second
	}
	return &Server{
		socketPath:  socketPath,
		handler:     cfg.Handler,
		logger:      logger,
		idleTimeout: idle,
		ready:       make(chan struct{}),
	}, nil
}

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Ready is closed once the socket is accepting connections.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Serve listens on the socket until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	// Remove a stale socket left behind by a crashed daemon. The runtime
	// lock already guarantees no other instance owns it.
	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove stale socket: %w", err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	defer os.Remove(s.socketPath)

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.readyOnce.Do(func() { close(s.ready) })

	s.logger.Info("IPC server listening", "socket", s.socketPath)

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.logger.Info("IPC server stopped")
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			s.logger.Warn("IPC accept error", "error", err)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleConnection(ctx, conn)
		}()
	}
}

// handleConnection answers newline-delimited requests until the peer hangs
// up or goes idle.
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := checkPeer(conn); err != nil {
		s.logger.Warn("IPC connection rejected", "error", err)
		s.send(conn, NewErrorResponse("permission denied"))
		return
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), maxRequestSize)
	for {
		conn.SetReadDeadline(time.Now().Add(s.idleTimeout))
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil && !isTimeout(err) {
				s.logger.Debug("IPC read error", "error", err)
			}
			return
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if !s.send(conn, s.handleLine(ctx, line)) {
			return
		}
	}
}

func (s *Server) handleLine(ctx context.Context, line []byte) *Response {
	req, err := ParseRequest(line)
	if err != nil {
		return NewErrorResponse(fmt.Sprintf("Invalid request: %v", err))
	}

	s.logger.Debug("IPC request", "command", req.Command)
	data, err := s.handler.HandleRequest(ctx, req)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	resp, err := NewOKResponse(data)
	if err != nil {
		return NewErrorResponse(err.Error())
	}
	return resp
}

func (s *Server) send(conn net.Conn, resp *Response) bool {
	respData, err := resp.Marshal()
	if err != nil {
		s.logger.Error("failed to marshal response", "error", err)
		return false
	}
	respData = append(respData, '\n')
	conn.SetWriteDeadline(time.Now().Add(s.idleTimeout))
	if _, err := conn.Write(respData); err != nil {
		s.logger.Debug("failed to send response", "error", err)
		return false
	}
	return true
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func (s *Server) String() string {
	return "ipc-server"
}
