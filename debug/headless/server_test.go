package headless

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// handlerFunc answers one call. A non-nil fault is sent as the response
// error, as is: a string for Delve style faults, a map for JSON-RPC 2.0.
type handlerFunc func(params json.RawMessage) (result interface{}, fault interface{})

// fakeServer speaks the headless JSON-RPC protocol on one port: HTTP POST,
// websocket upgrades and raw JSON streams are told apart by their first
// byte.
type fakeServer struct {
	t   *testing.T
	srv *httptest.Server

	mu       sync.Mutex
	handlers map[string]handlerFunc
	calls    []string
	conns    map[string]int
}

func newFakeServer(t *testing.T) *fakeServer {
	s := &fakeServer{
		t:        t,
		handlers: make(map[string]handlerFunc),
		conns:    make(map[string]int),
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	sniff := &sniffListener{
		Listener:  ln,
		httpConns: make(chan net.Conn),
		done:      make(chan struct{}),
		raw:       s.serveStream,
	}
	go sniff.run()

	s.srv = httptest.NewUnstartedServer(http.HandlerFunc(s.serveHTTP))
	s.srv.Listener.Close()
	s.srv.Listener = sniff
	s.srv.Start()
	t.Cleanup(s.srv.Close)
	return s
}

func (s *fakeServer) hostPort() (string, int) {
	host, portStr, err := net.SplitHostPort(s.srv.Listener.Addr().String())
	require.NoError(s.t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(s.t, err)
	return host, port
}

func (s *fakeServer) client(opts ...Option) *Client {
	host, port := s.hostPort()
	c, err := New(context.Background(), host, port, opts...)
	require.NoError(s.t, err)
	s.t.Cleanup(func() { c.Close() })
	return c
}

// handle registers h for the method name without the RPCServer prefix.
func (s *fakeServer) handle(method string, h handlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = h
}

// reply registers a handler answering every call with result.
func (s *fakeServer) reply(method string, result interface{}) {
	s.handle(method, func(json.RawMessage) (interface{}, interface{}) {
		return result, nil
	})
}

func (s *fakeServer) fail(method string, fault interface{}) {
	s.handle(method, func(json.RawMessage) (interface{}, interface{}) {
		return nil, fault
	})
}

func (s *fakeServer) recordedCalls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *fakeServer) connCount(kind string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conns[kind]
}

func (s *fakeServer) dispatch(data []byte) []byte {
	var req struct {
		JSONRPC string            `json:"jsonrpc"`
		Method  string            `json:"method"`
		Params  []json.RawMessage `json:"params"`
		Id      uint64            `json:"id"`
	}
	if err := json.Unmarshal(data, &req); err != nil {
		s.t.Errorf("fake server: bad request %s: %v", data, err)
		return []byte(`{"id":0,"result":null,"error":"bad request"}`)
	}
	if len(req.Params) != 1 {
		s.t.Errorf("fake server: expected exactly one param, got %d", len(req.Params))
	}

	name := strings.TrimPrefix(req.Method, RPCNamespace+".")
	s.mu.Lock()
	s.calls = append(s.calls, name)
	h := s.handlers[name]
	s.mu.Unlock()

	resp := map[string]interface{}{"id": req.Id, "result": nil, "error": nil}
	if h == nil {
		resp["error"] = "rpc: can't find method " + req.Method
	} else {
		params := json.RawMessage(`{}`)
		if len(req.Params) > 0 {
			params = req.Params[0]
		}
		result, fault := h(params)
		if fault != nil {
			resp["error"] = fault
		} else {
			resp["result"] = result
		}
	}
	out, err := json.Marshal(resp)
	require.NoError(s.t, err)
	return out
}

func (s *fakeServer) serveHTTP(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		s.serveWebSocket(w, r)
		return
	}
	s.mu.Lock()
	s.conns["http"]++
	s.mu.Unlock()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(s.dispatch(body))
}

func (s *fakeServer) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	s.mu.Lock()
	s.conns["websocket"]++
	s.mu.Unlock()

	var writeMu sync.Mutex
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}
		go func() {
			out := s.dispatch(message)
			writeMu.Lock()
			defer writeMu.Unlock()
			conn.WriteMessage(websocket.TextMessage, out)
		}()
	}
}

// serveStream answers requests concurrently, so responses may come back
// in a different order than the requests.
func (s *fakeServer) serveStream(conn net.Conn, r *bufio.Reader) {
	defer conn.Close()
	s.mu.Lock()
	s.conns["socket"]++
	s.mu.Unlock()

	var writeMu sync.Mutex
	dec := json.NewDecoder(r)
	for {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return
		}
		go func() {
			out := s.dispatch(raw)
			writeMu.Lock()
			defer writeMu.Unlock()
			conn.Write(append(out, '\n'))
		}()
	}
}

// sniffListener hands connections starting with '{' to raw and the rest to
// the HTTP server.
type sniffListener struct {
	net.Listener
	httpConns chan net.Conn
	done      chan struct{}
	closeOnce sync.Once
	raw       func(net.Conn, *bufio.Reader)
}

func (l *sniffListener) run() {
	for {
		conn, err := l.Listener.Accept()
		if err != nil {
			return
		}
		go l.sniff(conn)
	}
}

func (l *sniffListener) sniff(conn net.Conn) {
	r := bufio.NewReader(conn)
	b, err := r.Peek(1)
	if err != nil {
		conn.Close()
		return
	}
	if b[0] == '{' {
		l.raw(conn, r)
		return
	}
	select {
	case l.httpConns <- &bufferedConn{Conn: conn, r: r}:
	case <-l.done:
		conn.Close()
	}
}

func (l *sniffListener) Accept() (net.Conn, error) {
	select {
	case conn := <-l.httpConns:
		return conn, nil
	case <-l.done:
		return nil, net.ErrClosed
	}
}

func (l *sniffListener) Close() error {
	l.closeOnce.Do(func() { close(l.done) })
	return l.Listener.Close()
}

type bufferedConn struct {
	net.Conn
	r *bufio.Reader
}

func (c *bufferedConn) Read(p []byte) (int, error) {
	return c.r.Read(p)
}

// decodeParams unmarshals the single call parameter into v.
func decodeParams(t *testing.T, params json.RawMessage, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(params, v))
}
