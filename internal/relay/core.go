package relay

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
	"go.uber.org/atomic"
	"moff.io/walletkit/pkg/errors"
	"moff.io/walletkit/pkg/log"
)

const (
	DefaultRelayURL       = "wss://relay.walletconnect.com"
	DefaultDialTimeout    = 10 * time.Second
	DefaultRequestTimeout = 30 * time.Second
	defaultUserAgent      = "wc-2/go-walletkit"
	writeTimeout          = 10 * time.Second
)

var (
	ErrNotStarted = errors.New("relay core not started")
	ErrClosed     = errors.New("relay core closed")
)

// Options configures a relay Core.
type Options struct {
	ProjectID      string
	RelayURL       string
	UserAgent      string
	DialTimeout    time.Duration
	RequestTimeout time.Duration
}

func (o *Options) withDefaults() {
	if o.RelayURL == "" {
		o.RelayURL = DefaultRelayURL
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUserAgent
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = DefaultDialTimeout
	}
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = DefaultRequestTimeout
	}
}

// Core is a websocket connection to a WalletConnect relay. It carries the
// JSON-RPC requests of the kit; message contents are opaque to it.
type Core struct {
	opts   Options
	dialer websocket.Dialer

	started atomic.Bool
	lastID  atomic.Int64

	mu      sync.Mutex
	conn    *websocket.Conn
	pending map[int64]chan response
	handler func(Message)
	done    chan struct{}
	closed  bool

	writeMu sync.Mutex
}

// NewCore validates opts and returns an unconnected core.
func NewCore(opts Options) (*Core, error) {
	if opts.ProjectID == "" {
		return nil, errors.New("relay project id is required")
	}
	opts.withDefaults()
	if _, err := GetWebSocketUrl(opts.RelayURL, opts.ProjectID, opts.UserAgent); err != nil {
		return nil, err
	}
	c := &Core{
		opts: opts,
		dialer: websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: opts.DialTimeout,
		},
		pending: make(map[int64]chan response),
		done:    make(chan struct{}),
	}
	c.lastID.Store(time.Now().UnixNano() / 1000)
	return c, nil
}

// ProjectID is the identity the core authenticates with.
func (c *Core) ProjectID() string {
	return c.opts.ProjectID
}

func (c *Core) RelayURL() string {
	return c.opts.RelayURL
}

// OnMessage registers the handler for inbound subscription messages. It is
// called from the read loop and must not block.
func (c *Core) OnMessage(handler func(Message)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = handler
}

// Start connects to the relay. Calling Start on a started core is a no-op.
func (c *Core) Start(ctx context.Context) error {
	if !c.started.CAS(false, true) {
		if c.isClosed() {
			return ErrClosed
		}
		return nil
	}
	if c.isClosed() {
		return ErrClosed
	}
	wsURL, err := GetWebSocketUrl(c.opts.RelayURL, c.opts.ProjectID, c.opts.UserAgent)
	if err != nil {
		c.started.Store(false)
		return err
	}
	dialCtx, cancel := context.WithTimeout(ctx, c.opts.DialTimeout)
	defer cancel()
	conn, resp, err := c.dialer.DialContext(dialCtx, wsURL, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		c.started.Store(false)
		if resp != nil {
			return errors.Wrapf(err, "dial relay %s: status %d", c.opts.RelayURL, resp.StatusCode)
		}
		return errors.Wrapf(err, "dial relay %s", c.opts.RelayURL)
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return ErrClosed
	}
	c.conn = conn
	c.mu.Unlock()
	log.Infof("relay - connected to %v", c.opts.RelayURL)
	go c.readLoop(conn)
	return nil
}

// Connected reports whether the core holds a live connection.
func (c *Core) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil && !c.closed
}

// Close closes the connection and fails every pending request with ErrClosed.
func (c *Core) Close() error {
	return c.shutdown(nil)
}

func (c *Core) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Core) shutdown(cause error) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.started.Store(true)
	conn := c.conn
	close(c.done)
	c.mu.Unlock()

	if cause != nil {
		log.Warnf("relay - connection to %v lost:%v", c.opts.RelayURL, cause)
	}
	if conn == nil {
		return nil
	}
	c.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.writeMu.Unlock()
	if err := conn.Close(); err != nil {
		return errors.Wrap(err, "close relay connection")
	}
	return nil
}

// Subscribe asks the relay for messages on topic and returns the subscription id.
func (c *Core) Subscribe(ctx context.Context, topic string) (string, error) {
	result, err := c.request(ctx, methodSubscribe, subscribeParams{Topic: topic})
	if err != nil {
		return "", err
	}
	id := result.String()
	if id == "" {
		return "", errors.Errorf("relay returned empty subscription id for topic %v", topic)
	}
	log.Debugf("relay - subscribed topic %v id %v", topic, id)
	return id, nil
}

func (c *Core) Unsubscribe(ctx context.Context, topic, subscriptionID string) error {
	_, err := c.request(ctx, methodUnsubscribe, unsubscribeParams{Topic: topic, ID: subscriptionID})
	return err
}

// Publish sends an already encoded message to topic.
func (c *Core) Publish(ctx context.Context, topic, message string, ttl time.Duration, tag int) error {
	result, err := c.request(ctx, methodPublish, publishParams{
		Topic:   topic,
		Message: message,
		TTL:     int64(ttl / time.Second),
		Tag:     tag,
	})
	if err != nil {
		return err
	}
	if !result.Bool() {
		return errors.Errorf("relay refused publish on topic %v", topic)
	}
	return nil
}

func (c *Core) request(ctx context.Context, method string, params interface{}) (gjson.Result, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return gjson.Result{}, ErrClosed
	}
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return gjson.Result{}, ErrNotStarted
	}
	id := c.lastID.Inc()
	ch := make(chan response, 1)
	c.pending[id] = ch
	done := c.done
	c.mu.Unlock()
	defer c.dropPending(id)

	req := newJSONRpcRequest(id, method, params)
	log.Debugf("relay - request:%s", req.Marshal())
	if err := c.write(conn, req.Marshal()); err != nil {
		return gjson.Result{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()
	select {
	case resp := <-ch:
		if resp.err != nil {
			if rpcErr, ok := resp.err.(*RPCError); ok {
				rpcErr.Method = method
			}
		}
		return resp.result, resp.err
	case <-done:
		return gjson.Result{}, ErrClosed
	case <-ctx.Done():
		return gjson.Result{}, errors.Wrapf(ctx.Err(), "wait relay %s response", method)
	}
}

func (c *Core) dropPending(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, id)
}

func (c *Core) takePending(id int64) chan response {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := c.pending[id]
	delete(c.pending, id)
	return ch
}

func (c *Core) write(conn *websocket.Conn, payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return errors.Wrap(err, "set relay write deadline")
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return errors.Wrap(err, "write relay message")
	}
	return nil
}

func (c *Core) readLoop(conn *websocket.Conn) {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if c.isClosed() {
				return
			}
			_ = c.shutdown(err)
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		c.dispatch(conn, data)
	}
}

func (c *Core) dispatch(conn *websocket.Conn, data []byte) {
	if !gjson.ValidBytes(data) {
		log.Warnf("relay - dropped invalid frame:%s", data)
		return
	}
	frame := gjson.ParseBytes(data)
	id := frame.Get("id").Int()
	if method := frame.Get("method"); method.Exists() {
		c.handleRequest(conn, id, method.String(), frame.Get("params"))
		return
	}
	ch := c.takePending(id)
	if ch == nil {
		log.Debugf("relay - response without pending request:%s", data)
		return
	}
	if e := frame.Get("error"); e.Exists() {
		ch <- response{err: &RPCError{
			Code:    e.Get("code").Int(),
			Message: e.Get("message").String(),
		}}
		return
	}
	ch <- response{result: frame.Get("result")}
}

func (c *Core) handleRequest(conn *websocket.Conn, id int64, method string, params gjson.Result) {
	if method != methodSubscription {
		log.Debugf("relay - ignored request %v", method)
		return
	}
	ack := &jsonRpcResult{ID: id, JSONRpc: "2.0", Result: true}
	if err := c.write(conn, ack.Marshal()); err != nil {
		log.Warnf("relay - ack subscription message:%v", err)
	}
	c.mu.Lock()
	handler := c.handler
	c.mu.Unlock()
	if handler != nil {
		handler(newMessage(params))
	}
}
