package control

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"panetree/modules/platform/logger"
)

const maxAcceptDelay = time.Second

// Handler receives commands other than ping
type Handler interface {
	HandleMessage(msg Message)
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(msg Message)

// HandleMessage calls f(msg)
func (f HandlerFunc) HandleMessage(msg Message) {
	f(msg)
}

// ServerOption configures a Server
type ServerOption func(*Server)

// WithServerLogger sets the logger
func WithServerLogger(l *logger.Logger) ServerOption {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

type client struct {
	conn net.Conn
	mu   sync.Mutex
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.conn.Write(data)
	return err
}

// Server listens on a view's socket and dispatches commands to a Handler
type Server struct {
	socketPath string
	handler    Handler
	log        *logger.Logger
	listener   net.Listener

	clientMu sync.Mutex
	clients  map[net.Conn]*client

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewServer creates a server for the socket at path
func NewServer(path string, handler Handler, opts ...ServerOption) *Server {
	s := &Server{
		socketPath: path,
		handler:    handler,
		log:        logger.GetGlobalLogger(),
		clients:    make(map[net.Conn]*client),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the socket path
func (s *Server) Path() string {
	return s.socketPath
}

// Start removes a stale socket at the same path and starts accepting connections
func (s *Server) Start() error {
	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove stale socket: %w", err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create socket: %w", err)
	}
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		s.log.Warn("Cannot restrict socket permissions: %v", err)
	}
	s.listener = listener

	s.wg.Add(1)
	go s.acceptLoop()

	s.log.Debug("Control socket listening at %s", s.socketPath)
	return nil
}

// Close stops accepting, disconnects every client and removes the socket file
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)

		if s.listener != nil {
			s.listener.Close()
		}

		s.clientMu.Lock()
		for conn := range s.clients {
			conn.Close()
		}
		s.clientMu.Unlock()

		s.wg.Wait()

		if s.listener != nil {
			os.Remove(s.socketPath)
		}
	})
	return nil
}

// ClientCount returns the number of connected clients
func (s *Server) ClientCount() int {
	s.clientMu.Lock()
	defer s.clientMu.Unlock()
	return len(s.clients)
}

// Broadcast sends msg to every connected client. A client that cannot be
// written to is dropped.
func (s *Server) Broadcast(msg Message) {
	data, err := msg.Encode()
	if err != nil {
		return
	}

	s.clientMu.Lock()
	targets := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		targets = append(targets, c)
	}
	s.clientMu.Unlock()

	for _, c := range targets {
		if err := c.write(data); err != nil {
			s.dropClient(c.conn)
		}
	}
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	var delay time.Duration
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}

			// Errors like EMFILE repeat until something else closes a descriptor
			if delay == 0 {
				delay = 5 * time.Millisecond
			} else if delay *= 2; delay > maxAcceptDelay {
				delay = maxAcceptDelay
			}
			s.log.Debug("Accept failed, retrying in %s: %v", delay, err)
			select {
			case <-s.done:
				return
			case <-time.After(delay):
			}
			continue
		}
		delay = 0

		c := &client{conn: conn}
		s.clientMu.Lock()
		select {
		case <-s.done:
			s.clientMu.Unlock()
			conn.Close()
			return
		default:
		}
		s.clients[conn] = c
		s.clientMu.Unlock()

		s.wg.Add(1)
		go s.handleClient(c)
	}
}

func (s *Server) dropClient(conn net.Conn) {
	s.clientMu.Lock()
	delete(s.clients, conn)
	s.clientMu.Unlock()
	conn.Close()
}

// handleClient reads newline-delimited messages until the peer disconnects.
// Partial lines are buffered until their delimiter arrives.
func (s *Server) handleClient(c *client) {
	defer s.wg.Done()
	defer s.dropClient(c.conn)

	reader := bufio.NewReader(c.conn)
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			return
		}

		msg, ok := DecodeMessage(line)
		if !ok || !msg.Type.IsCommand() {
			s.log.Debug("Dropping unrecognized control line")
			continue
		}

		if msg.Type == MsgPing {
			if data, err := (Message{Type: MsgPong}).Encode(); err == nil {
				if err := c.write(data); err != nil {
					return
				}
			}
			continue
		}

		if s.handler != nil {
			s.handler.HandleMessage(msg)
		}
	}
}
