package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"contactdb/pkg/common"
	"contactdb/pkg/protocol"
)

var (
	ErrNotFound = errors.New("contact not found")
	ErrInvalid  = errors.New("invalid request")
)

// ServerError is a RespErr frame the server sent back.
type ServerError struct {
	Code    string
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServerError) Unwrap() error {
	switch e.Code {
	case protocol.CodeNotFound:
		return ErrNotFound
	case protocol.CodeInvalid:
		return ErrInvalid
	}
	return nil
}

// Client speaks the binary protocol over one connection. It is safe for
// concurrent use; requests are serialized.
type Client struct {
	mu      sync.Mutex
	conn    net.Conn
	addr    string
	timeout time.Duration
}

func Dial(addr string) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, err
	}
	return &Client{
		conn:    conn,
		addr:    addr,
		timeout: 10 * time.Second,
	}, nil
}

func (c *Client) List(sortBy, term string) ([]common.ContactJSON, error) {
	var out []common.ContactJSON
	err := c.call(protocol.OpList, []byte(sortBy), []byte(term), true, &out)
	return out, err
}

func (c *Client) Search(name string) (common.ContactJSON, error) {
	var out common.ContactJSON
	err := c.call(protocol.OpSearch, []byte(name), nil, true, &out)
	return out, err
}

func (c *Client) Get(id string) (common.ContactJSON, error) {
	var out common.ContactJSON
	err := c.call(protocol.OpGet, []byte(id), nil, true, &out)
	return out, err
}

func (c *Client) Add(in common.ContactInput) (common.ContactJSON, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return common.ContactJSON{}, err
	}
	var out common.ContactJSON
	err = c.call(protocol.OpPut, nil, payload, false, &out)
	return out, err
}

// Update replaces the fields of contact id. A new name re-keys it.
func (c *Client) Update(id string, in common.ContactInput) (common.ContactJSON, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return common.ContactJSON{}, err
	}
	var out common.ContactJSON
	err = c.call(protocol.OpUpdate, []byte(id), payload, false, &out)
	return out, err
}

func (c *Client) Delete(id string) (common.ContactJSON, error) {
	var out common.ContactJSON
	err := c.call(protocol.OpDel, []byte(id), nil, false, &out)
	return out, err
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Close()
}

// call sends one request and decodes the RespVal payload into out.
func (c *Client) call(op byte, key, val []byte, idempotent bool, out any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	pkg, err := c.roundTrip(op, key, val, idempotent)
	if err != nil {
		return err
	}
	switch pkg.Op {
	case protocol.RespVal:
		if out == nil {
			return nil
		}
		return json.Unmarshal(pkg.Value, out)
	case protocol.RespOK:
		return nil
	case protocol.RespErr:
		return &ServerError{Code: string(pkg.Key), Message: string(pkg.Value)}
	default:
		return fmt.Errorf("unknown response op %#x", pkg.Op)
	}
}

// roundTrip reconnects and retries once when the request could not be sent.
// A lost response is retried only for idempotent requests.
func (c *Client) roundTrip(op byte, key, val []byte, idempotent bool) (*protocol.Packet, error) {
	c.conn.SetDeadline(time.Now().Add(c.timeout))
	if err := protocol.Encode(c.conn, op, key, val); err != nil {
		return c.reconnectAndRetry(op, key, val)
	}
	pkg, err := protocol.Decode(c.conn)
	if err != nil {
		if idempotent {
			return c.reconnectAndRetry(op, key, val)
		}
		return nil, err
	}
	return pkg, nil
}

func (c *Client) reconnectAndRetry(op byte, key, val []byte) (*protocol.Packet, error) {
	c.conn.Close()
	conn, err := net.DialTimeout("tcp", c.addr, 5*time.Second)
	if err != nil {
		return nil, err
	}
	c.conn = conn

	c.conn.SetDeadline(time.Now().Add(c.timeout))
	// Re-send
	if err := protocol.Encode(c.conn, op, key, val); err != nil {
		return nil, err
	}
	// Re-read
	return protocol.Decode(c.conn)
}
