package network

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"

	"contactdb/pkg/common"
	"contactdb/pkg/core"
	"contactdb/pkg/protocol"
)

// Contacts is the part of core.ContactService served over TCP.
type Contacts interface {
	Create(ctx context.Context, in common.ContactInput) (common.Contact, error)
	Get(ctx context.Context, id string) (common.Contact, error)
	Update(ctx context.Context, id string, in common.ContactInput) (common.Contact, error)
	Delete(ctx context.Context, id string) (common.Contact, error)
	List(order core.SortOrder, term string) []common.Contact
	SearchByName(name string) (common.Contact, error)
}

type TCPServer struct {
	svc    Contacts
	logger *slog.Logger

	mu    sync.Mutex
	conns map[net.Conn]struct{}
	wg    sync.WaitGroup
}

func NewTCPServer(svc Contacts, logger *slog.Logger) *TCPServer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &TCPServer{
		svc:    svc,
		logger: logger.With("component", "tcp"),
		conns:  make(map[net.Conn]struct{}),
	}
}

// Start listens on addr and serves until ctx is cancelled.
func (s *TCPServer) Start(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listener)
}

// Serve accepts on l until ctx is cancelled, then closes l and every open
// connection and waits for their handlers.
func (s *TCPServer) Serve(ctx context.Context, l net.Listener) error {
	s.logger.Info("Listening (binary protocol)", "addr", l.Addr().String())

	stop := context.AfterFunc(ctx, func() {
		l.Close()
		s.closeConns()
	})
	defer stop()

	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.wg.Wait()
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return err
			}
			s.logger.Warn("Accept error", "error", err)
			continue
		}
		s.track(ctx, conn)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(conn)
			s.handleConn(ctx, conn)
		}()
	}
}

// track registers conn for shutdown. A conn accepted after shutdown began is
// closed at once so its handler returns.
func (s *TCPServer) track(ctx context.Context, conn net.Conn) {
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
	if ctx.Err() != nil {
		conn.Close()
	}
}

func (s *TCPServer) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	conn.Close()
}

func (s *TCPServer) closeConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		c.Close()
	}
}

func (s *TCPServer) handleConn(ctx context.Context, conn net.Conn) {
	for {
		req, err := protocol.Decode(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				s.logger.Debug("Decode error", "remote", conn.RemoteAddr().String(), "error", err)
			}
			return
		}
		if err := s.dispatch(ctx, conn, req); err != nil {
			s.logger.Debug("Write error", "remote", conn.RemoteAddr().String(), "error", err)
			return
		}
	}
}

func (s *TCPServer) dispatch(ctx context.Context, w io.Writer, req *protocol.Packet) error {
	switch req.Op {
	case protocol.OpPut:
		var in common.ContactInput
		if err := json.Unmarshal(req.Value, &in); err != nil {
			return protocol.EncodeError(w, protocol.CodeInvalid, "invalid contact payload: "+err.Error())
		}
		c, err := s.svc.Create(ctx, in)
		if err != nil {
			return s.writeError(w, err)
		}
		return writeValue(w, c.JSON())

	case protocol.OpUpdate:
		var in common.ContactInput
		if err := json.Unmarshal(req.Value, &in); err != nil {
			return protocol.EncodeError(w, protocol.CodeInvalid, "invalid contact payload: "+err.Error())
		}
		c, err := s.svc.Update(ctx, string(req.Key), in)
		if err != nil {
			return s.writeError(w, err)
		}
		return writeValue(w, c.JSON())

	case protocol.OpGet:
		c, err := s.svc.Get(ctx, string(req.Key))
		if err != nil {
			return s.writeError(w, err)
		}
		return writeValue(w, c.JSON())

	case protocol.OpDel:
		c, err := s.svc.Delete(ctx, string(req.Key))
		if err != nil {
			return s.writeError(w, err)
		}
		return writeValue(w, c.JSON())

	case protocol.OpList:
		order := core.ParseSortOrder(string(req.Key))
		return writeValue(w, common.ContactList(s.svc.List(order, string(req.Value))))

	case protocol.OpSearch:
		c, err := s.svc.SearchByName(string(req.Key))
		if err != nil {
			return s.writeError(w, err)
		}
		return writeValue(w, c.JSON())

	default:
		return protocol.EncodeError(w, protocol.CodeInvalid, "unknown op")
	}
}

func writeValue(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return protocol.EncodeError(w, protocol.CodeInternal, err.Error())
	}
	return protocol.Encode(w, protocol.RespVal, nil, data)
}

func (s *TCPServer) writeError(w io.Writer, err error) error {
	var verr *common.ValidationError
	switch {
	case errors.As(err, &verr):
		return protocol.EncodeError(w, protocol.CodeInvalid, verr.Error())
	case errors.Is(err, core.ErrNotFound):
		return protocol.EncodeError(w, protocol.CodeNotFound, err.Error())
	default:
		s.logger.Error("Request failed", "error", err)
		return protocol.EncodeError(w, protocol.CodeInternal, err.Error())
	}
}
