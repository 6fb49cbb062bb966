package headless

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rudderlabs/rudder-go-kit/logger"
	"golang.org/x/sync/singleflight"

	"github.com/xhd2015/dlv-rpc/debug/common"
)

const (
	DefaultHost = "localhost"
	DefaultPort = 8181

	defaultDialTimeout = 10 * time.Second
)

// TransportState tells which transport a Client currently uses.
type TransportState uint8

const (
	// TransportBasic posts every call as a separate HTTP request.
	TransportBasic TransportState = iota
	// TransportUpgraded holds one persistent connection.
	TransportUpgraded
)

func (s TransportState) String() string {
	if s == TransportUpgraded {
		return "upgraded"
	}
	return "basic"
}

// UpgradeMode selects the persistent transport Upgrade switches to.
type UpgradeMode uint8

const (
	// UpgradeSocket uses a raw TCP stream of JSON values.
	UpgradeSocket UpgradeMode = iota
	// UpgradeWebSocket uses a websocket connection to ws://host:port/.
	UpgradeWebSocket
)

func (m UpgradeMode) String() string {
	if m == UpgradeWebSocket {
		return "websocket"
	}
	return "socket"
}

// ParseTransport maps a transport name to the upgrade it requires.
// "http" (or "") needs no upgrade.
func ParseTransport(name string) (mode UpgradeMode, upgrade bool, err error) {
	switch name {
	case "", "http":
		return 0, false, nil
	case "socket", "tcp":
		return UpgradeSocket, true, nil
	case "websocket", "ws":
		return UpgradeWebSocket, true, nil
	default:
		return 0, false, fmt.Errorf("unsupported transport: %s", name)
	}
}

// UpgradeDialer opens the persistent transport for an upgrade.
type UpgradeDialer func(ctx context.Context, mode UpgradeMode) (Transport, error)

// handle is replaced as a whole, never mutated.
type handle struct {
	transport Transport
	state     TransportState
}

// Client talks to a Delve headless server over its JSON-RPC API.
// A Client is safe for concurrent use.
type Client struct {
	addr        string
	log         logger.Logger
	httpClient  *http.Client
	dialTimeout time.Duration
	dialUpgrade UpgradeDialer

	// gate is held shared by every call and exclusively by an upgrade
	gate     sync.RWMutex
	handle   atomic.Pointer[handle]
	upgrades singleflight.Group

	// swapMu orders Close against the handle swap of an upgrade
	swapMu sync.Mutex
	closed bool
}

var _ common.DebuggerClient = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger; the default discards everything.
func WithLogger(log logger.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// WithHTTPClient sets the HTTP client used by the basic transport.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithDialTimeout bounds connection setup.
func WithDialTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.dialTimeout = timeout
	}
}

// WithTransport replaces the basic transport. No reachability check is
// done when it is set.
func WithTransport(t Transport) Option {
	return func(c *Client) {
		c.handle.Store(&handle{transport: t, state: TransportBasic})
	}
}

// WithUpgradeDialer replaces how Upgrade opens the persistent transport.
func WithUpgradeDialer(dial UpgradeDialer) Option {
	return func(c *Client) {
		c.dialUpgrade = dial
	}
}

// New creates a client for the server at host:port. An empty host and a
// zero port select DefaultHost and DefaultPort.
//
// The server must be reachable: New fails with a *ConnectionError
// otherwise.
func New(ctx context.Context, host string, port int, opts ...Option) (*Client, error) {
	if host == "" {
		host = DefaultHost
	}
	if port == 0 {
		port = DefaultPort
	}
	c := &Client{
		addr:        net.JoinHostPort(host, strconv.Itoa(port)),
		log:         logger.NOP,
		dialTimeout: defaultDialTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.Child("headless")
	if c.dialUpgrade == nil {
		c.dialUpgrade = c.dialPersistent
	}

	if c.handle.Load() == nil {
		if err := c.checkReachable(ctx); err != nil {
			return nil, err
		}
		httpClient := c.httpClient
		if httpClient == nil {
			httpClient = &http.Client{Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: c.dialTimeout}).DialContext,
			}}
		}
		c.handle.Store(&handle{
			transport: newHTTPTransport("http://"+c.addr+"/", httpClient),
			state:     TransportBasic,
		})
	}

	c.log.Infon("Connected to Delve server",
		logger.NewStringField("addr", c.addr),
		logger.NewStringField("transport", c.State().String()),
	)
	return c, nil
}

// Addr returns the server address.
func (c *Client) Addr() string {
	return c.addr
}

// State returns the current transport state.
func (c *Client) State() TransportState {
	return c.handle.Load().state
}

// Close closes the current transport. It does not wait for in-flight
// calls: calls blocked on a persistent transport fail with a
// *ConnectionError, and a pending upgrade is abandoned.
func (c *Client) Close() error {
	c.swapMu.Lock()
	c.closed = true
	h := c.handle.Load()
	c.swapMu.Unlock()
	return h.transport.Close()
}

// Upgrade switches the client to a persistent connection.
//
// It waits for in-flight calls to finish and holds back new ones until the
// new transport is in place, so a pending upgrade also delays calls that
// would unblock a running one (Halt during Continue). Concurrent upgrades
// share one attempt. Upgrading an upgraded client does nothing; there is no
// way back to the basic transport.
func (c *Client) Upgrade(ctx context.Context, mode UpgradeMode) error {
	_, err, _ := c.upgrades.Do("upgrade", func() (interface{}, error) {
		return nil, c.upgrade(ctx, mode)
	})
	return err
}

func (c *Client) upgrade(ctx context.Context, mode UpgradeMode) error {
	c.gate.Lock()
	defer c.gate.Unlock()

	old := c.handle.Load()
	if old.state == TransportUpgraded {
		return nil
	}

	if c.isClosed() {
		return &ConnectionError{Addr: c.addr, Err: errTransportClosed}
	}
	t, err := c.dialUpgrade(ctx, mode)
	if err != nil {
		return &ConnectionError{Addr: c.addr, Err: err}
	}

	c.swapMu.Lock()
	if c.closed {
		c.swapMu.Unlock()
		t.Close()
		return &ConnectionError{Addr: c.addr, Err: errTransportClosed}
	}
	c.handle.Store(&handle{transport: t, state: TransportUpgraded})
	c.swapMu.Unlock()

	if err := old.transport.Close(); err != nil {
		c.log.Warnn("Failed to close basic transport", logger.NewErrorField(err))
	}
	c.log.Infon("Upgraded transport",
		logger.NewStringField("addr", c.addr),
		logger.NewStringField("mode", mode.String()),
	)
	return nil
}

func (c *Client) isClosed() bool {
	c.swapMu.Lock()
	defer c.swapMu.Unlock()
	return c.closed
}

func (c *Client) dialPersistent(ctx context.Context, mode UpgradeMode) (Transport, error) {
	switch mode {
	case UpgradeSocket:
		conn, err := dialSocket(ctx, c.addr, c.dialTimeout)
		if err != nil {
			return nil, err
		}
		return newStreamTransport(conn), nil
	case UpgradeWebSocket:
		conn, err := dialWebSocket(ctx, "ws://"+c.addr+"/", c.dialTimeout)
		if err != nil {
			return nil, err
		}
		return newStreamTransport(conn), nil
	default:
		return nil, fmt.Errorf("unsupported upgrade mode: %d", mode)
	}
}

// checkReachable fails fast when nothing listens on the server address.
func (c *Client) checkReachable(ctx context.Context) error {
	d := net.Dialer{Timeout: c.dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return &ConnectionError{Addr: c.addr, Err: err}
	}
	return conn.Close()
}

// callRaw issues method and leaves a server fault as a bare *Fault for the
// caller to translate. Transport failures become *ConnectionError.
func (c *Client) callRaw(ctx context.Context, method RPCMethod, args interface{}, out interface{}) error {
	c.gate.RLock()
	defer c.gate.RUnlock()

	c.log.Debugn("Sending request", logger.NewStringField("method", string(method)))

	err := c.handle.Load().transport.Call(ctx, string(method), args, out)
	if err == nil {
		return nil
	}

	var fault *Fault
	var malformed *malformedResponseError
	switch {
	case errors.As(err, &fault):
		c.log.Debugn("Server fault",
			logger.NewStringField("method", string(method)),
			logger.NewStringField("fault", fault.Message),
		)
		return fault
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.As(err, &malformed):
		return fmt.Errorf("%s: %w", method, err)
	default:
		return &ConnectionError{Addr: c.addr, Err: err}
	}
}

// callWrapped issues method and reports a server fault as *ServerError.
func (c *Client) callWrapped(ctx context.Context, method RPCMethod, args interface{}, out interface{}) error {
	err := c.callRaw(ctx, method, args, out)
	var fault *Fault
	if errors.As(err, &fault) {
		return &ServerError{Method: string(method), Fault: fault}
	}
	return err
}
