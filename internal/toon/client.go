package toon

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/toonapp/internal/logging"
	"github.com/muurk/toonapp/internal/transport"
)

// Options configures a Client
type Options struct {
	// Username and Password are the Toon web app credentials (required)
	Username string
	Password string

	// Timeout is the per-request timeout (default: DefaultTimeout)
	Timeout time.Duration

	// Endpoint is the base URL paths are appended to (default: DefaultEndpoint)
	Endpoint string

	// Referer overrides the Referer header (default: DefaultReferer)
	Referer string

	// Doer performs HTTP requests (default: transport.NewHTTPDoer())
	Doer transport.Doer

	// Logger receives request and session logs (default: logging.GetLogger())
	Logger *zap.Logger
}

// Client exposes the Toon operations.
// Client instances are safe for concurrent use.
type Client struct {
	req      *requester
	sessions *Sessions
	log      *zap.Logger
}

// New creates a Client. No request is made until the first operation.
func New(opts Options) (*Client, error) {
	if opts.Username == "" || opts.Password == "" {
		return nil, NewValidationError("username and password are required")
	}

	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.Referer == "" {
		opts.Referer = DefaultReferer
	}
	if opts.Doer == nil {
		opts.Doer = transport.NewHTTPDoer()
	}
	if opts.Logger == nil {
		opts.Logger = logging.GetLogger()
	}

	req := &requester{
		doer:     opts.Doer,
		endpoint: opts.Endpoint,
		referer:  opts.Referer,
		timeout:  opts.Timeout,
		log:      opts.Logger,
		now:      time.Now,
	}

	creds := Credentials{Username: opts.Username, Password: opts.Password}

	return &Client{
		req:      req,
		sessions: newSessions(creds, req, opts.Logger),
		log:      opts.Logger,
	}, nil
}

// Sessions returns the session manager used by the client
func (c *Client) Sessions() *Sessions {
	return c.sessions
}

// Execute runs spec through the request pipeline.
//
// Session-bearing requests first ensure a session exists. If such a request
// then fails in a way consistent with session expiry, the session is dropped,
// a fresh handshake is performed, and the request is issued exactly once more.
// The retry ignores cancellation of ctx once started.
func (c *Client) Execute(ctx context.Context, spec RequestSpec) (*Response, error) {
	if !spec.RequiresSession {
		var sessp *Session
		if sess, ok := c.sessions.Current(); ok {
			sessp = &sess
		}
		return c.req.send(ctx, spec, sessp, 1)
	}

	sess, err := c.sessions.Ensure(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.req.send(ctx, spec, &sess, 1)
	if err == nil || !IsSessionFailure(err) {
		return resp, err
	}

	c.log.Warn("Session-bearing request failed, re-authenticating",
		zap.String("path", spec.Path),
		zap.Error(err),
	)

	ctx = context.WithoutCancel(ctx)
	c.sessions.invalidateStale(sess)

	sess, err = c.sessions.Ensure(ctx)
	if err != nil {
		return nil, err
	}

	return c.req.send(ctx, spec, &sess, 2)
}

// GetVersion fetches the service's version information. It never triggers a handshake.
func (c *Client) GetVersion(ctx context.Context) (*Response, error) {
	return c.Execute(ctx, RequestSpec{
		Method: http.MethodGet,
		Path:   PathVersion,
	})
}

// SetPreset activates a temperature preset
func (c *Client) SetPreset(ctx context.Context, preset Preset) (*Response, error) {
	return c.Execute(ctx, RequestSpec{
		Method: http.MethodGet,
		Path:   PathSchemeState,
		Query: map[string]string{
			"state":            "2",
			"temperatureState": strconv.Itoa(int(preset)),
			paramRandom:        NewRandomToken(),
		},
		RequiresSession: true,
	})
}

// SetTemperature sets a manual target temperature in hundredths of a degree
// Celsius (1847 = 18.47°C). The value is sent unchanged.
func (c *Client) SetTemperature(ctx context.Context, centiCelsius int) (*Response, error) {
	return c.Execute(ctx, RequestSpec{
		Method: http.MethodGet,
		Path:   PathSetPoint,
		Query: map[string]string{
			"value":     strconv.Itoa(centiCelsius),
			paramRandom: NewRandomToken(),
		},
		RequiresSession: true,
	})
}

// GetState fetches the full device state
func (c *Client) GetState(ctx context.Context) (*Response, error) {
	return c.Execute(ctx, RequestSpec{
		Method: http.MethodGet,
		Path:   PathState,
		Query: map[string]string{
			paramRandom: NewRandomToken(),
		},
		RequiresSession: true,
	})
}
