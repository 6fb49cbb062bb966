package headless

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// frameConn moves whole JSON messages over a persistent connection.
type frameConn interface {
	WriteFrame(data []byte) error
	ReadFrame() ([]byte, error)
	Close() error
}

// socketConn frames messages the way Delve's headless server does:
// a stream of JSON values, one request per line.
type socketConn struct {
	conn net.Conn
	dec  *json.Decoder
}

func dialSocket(ctx context.Context, addr string, timeout time.Duration) (*socketConn, error) {
	d := net.Dialer{Timeout: timeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to headless server: %w", err)
	}
	return &socketConn{
		conn: conn,
		dec:  json.NewDecoder(bufio.NewReader(conn)),
	}, nil
}

func (c *socketConn) WriteFrame(data []byte) error {
	// Add newline for Delve headless server
	_, err := c.conn.Write(append(data, '\n'))
	return err
}

func (c *socketConn) ReadFrame() ([]byte, error) {
	var raw json.RawMessage
	if err := c.dec.Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *socketConn) Close() error {
	return c.conn.Close()
}

// wsConn carries one JSON message per websocket text frame.
type wsConn struct {
	conn *websocket.Conn
}

func dialWebSocket(ctx context.Context, url string, timeout time.Duration) (*wsConn, error) {
	dialer := &websocket.Dialer{
		HandshakeTimeout: timeout,
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
	}
	conn, resp, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial error: %w (status %s)", err, resp.Status)
		}
		return nil, fmt.Errorf("websocket dial error: %w", err)
	}
	return &wsConn{conn: conn}, nil
}

func (c *wsConn) WriteFrame(data []byte) error {
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) ReadFrame() ([]byte, error) {
	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if messageType == websocket.TextMessage || messageType == websocket.BinaryMessage {
			return message, nil
		}
	}
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

// streamTransport multiplexes concurrent calls over one frameConn.
// Responses are matched to calls by request id.
type streamTransport struct {
	conn frameConn

	writeMu sync.Mutex

	mu      sync.Mutex
	seq     uint64
	pending map[uint64]chan *jsonRPCResponse
	err     error // set once the connection is unusable
}

func newStreamTransport(conn frameConn) *streamTransport {
	t := &streamTransport{
		conn:    conn,
		pending: make(map[uint64]chan *jsonRPCResponse),
	}
	go t.readLoop()
	return t
}

func (t *streamTransport) Call(ctx context.Context, method string, params interface{}, result interface{}) error {
	t.mu.Lock()
	if t.err != nil {
		err := t.err
		t.mu.Unlock()
		return err
	}
	t.seq++
	id := t.seq
	ch := make(chan *jsonRPCResponse, 1)
	t.pending[id] = ch
	t.mu.Unlock()

	data, err := encodeRequest(method, params, id)
	if err != nil {
		t.forget(id)
		return err
	}

	t.writeMu.Lock()
	err = t.conn.WriteFrame(data)
	t.writeMu.Unlock()
	if err != nil {
		t.forget(id)
		return fmt.Errorf("failed to send request: %w", err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return t.failure()
		}
		return resp.unpack(id, result)
	case <-ctx.Done():
		t.forget(id)
		return ctx.Err()
	}
}

func (t *streamTransport) Close() error {
	t.shutdown(errTransportClosed)
	return t.conn.Close()
}

func (t *streamTransport) readLoop() {
	for {
		data, err := t.conn.ReadFrame()
		if err != nil {
			t.shutdown(fmt.Errorf("failed to read response: %w", err))
			return
		}
		var resp jsonRPCResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			t.shutdown(&malformedResponseError{err: fmt.Errorf("failed to parse response: %w", err)})
			t.conn.Close()
			return
		}

		t.mu.Lock()
		ch := t.pending[resp.Id]
		delete(t.pending, resp.Id)
		t.mu.Unlock()

		// responses to abandoned calls are dropped
		if ch != nil {
			ch <- &resp
		}
	}
}

// shutdown fails every pending call and all later ones. The first
// recorded reason wins.
func (t *streamTransport) shutdown(reason error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err == nil {
		t.err = reason
	}
	for id, ch := range t.pending {
		close(ch)
		delete(t.pending, id)
	}
}

func (t *streamTransport) failure() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

func (t *streamTransport) forget(id uint64) {
	t.mu.Lock()
	delete(t.pending, id)
	t.mu.Unlock()
}
