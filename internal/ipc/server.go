package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"
)

// MaxRequestBytes bounds one request line; edit requests carry whole documents.
const MaxRequestBytes = 1 << 20

const requestReadTimeout = 5 * time.Second

// Handler processes one IPC command request.
type Handler interface {
	Handle(context.Context, Request) Response
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, Request) Response

func (f HandlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

// Server answers one request per connection.
type Server struct {
	Handler Handler
	Logger  *slog.Logger
}

// Serve accepts unix-socket clients until ctx is cancelled or the listener closes.
func Serve(ctx context.Context, listener net.Listener, handler Handler) error {
	return (&Server{Handler: handler}).Serve(ctx, listener)
}

// Serve accepts connections until ctx is cancelled or the listener closes,
// then waits for in-flight requests.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var wg sync.WaitGroup
	defer wg.Wait()

	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept IPC connection: %w", err)
		}

		wg.Add(1)
		go func(c net.Conn) {
			defer wg.Done()
			defer c.Close()

			resp := s.respond(ctx, c, logger)
			if err := json.NewEncoder(c).Encode(resp); err != nil {
				logger.Debug("write IPC response failed", "error", err.Error())
			}
		}(conn)
	}
}

func (s *Server) respond(ctx context.Context, c net.Conn, logger *slog.Logger) (resp Response) {
	_ = c.SetReadDeadline(time.Now().Add(requestReadTimeout))

	line, err := bufio.NewReader(io.LimitReader(c, MaxRequestBytes+1)).ReadBytes('\n')
	if err != nil {
		if len(line) > MaxRequestBytes {
			return Response{OK: false, Error: fmt.Sprintf("read request: exceeds %d bytes", MaxRequestBytes)}
		}
		return Response{OK: false, Error: fmt.Sprintf("read request: %v", err)}
	}

	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return Response{OK: false, Error: fmt.Sprintf("decode request: %v", err)}
	}
	if req.Command == "" {
		return Response{OK: false, Error: "missing command"}
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("IPC handler panicked", "command", req.Command, "panic", fmt.Sprint(r))
			resp = Response{OK: false, Error: fmt.Sprintf("%s: internal error", req.Command)}
		}
	}()
	return s.Handler.Handle(ctx, req)
}
