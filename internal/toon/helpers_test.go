package toon

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/muurk/toonapp/internal/transport"
)

const testEndpoint = "https://toon.test"

const (
	mockLoginResponse = `{"clientId":"a","clientIdChecksum":"b","agreements":[{"agreementId":"x","agreementIdChecksum":"y"}]}`
	mockStartResponse = `{"success":true}`
	mockStateResponse = `{"success":true,"thermostatInfo":{"currentTemp":2034,"currentSetpoint":1850,"activeState":1,"programState":1},"thermostatStates":{"state":[{"id":0},{"id":1}]}}`
)

// handlerFunc answers one fake exchange
type handlerFunc func(req *transport.Request) (*transport.Response, error)

// fakeDoer records every request and dispatches it by path
type fakeDoer struct {
	mu       sync.Mutex
	requests []*transport.Request
	handlers map[string]handlerFunc
}

func newFakeDoer() *fakeDoer {
	return &fakeDoer{
		handlers: map[string]handlerFunc{
			PathLogin:       reply(http.StatusOK, mockLoginResponse),
			PathStart:       reply(http.StatusOK, mockStartResponse),
			PathState:       reply(http.StatusOK, mockStateResponse),
			PathVersion:     reply(http.StatusOK, `{"success":true,"appVersion":"1.2"}`),
			PathSetPoint:    reply(http.StatusOK, `{"success":true}`),
			PathSchemeState: reply(http.StatusOK, `{"success":true}`),
		},
	}
}

func (f *fakeDoer) Do(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	h := f.handlers[strings.TrimPrefix(req.URL, testEndpoint)]
	f.mu.Unlock()

	if h == nil {
		return &transport.Response{StatusCode: http.StatusNotFound, Body: []byte("not found")}, nil
	}
	return h(req)
}

// handle replaces the handler for path
func (f *fakeDoer) handle(path string, h handlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[path] = h
}

// calls returns the recorded requests for path, in order
func (f *fakeDoer) calls(path string) []*transport.Request {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*transport.Request
	for _, r := range f.requests {
		if r.URL == testEndpoint+path {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeDoer) count(path string) int {
	return len(f.calls(path))
}

func reply(status int, body string) handlerFunc {
	return func(*transport.Request) (*transport.Response, error) {
		return &transport.Response{StatusCode: status, Body: []byte(body)}, nil
	}
}

// sequence answers successive calls with successive handlers, repeating the last
func sequence(handlers ...handlerFunc) handlerFunc {
	var mu sync.Mutex
	n := 0
	return func(req *transport.Request) (*transport.Response, error) {
		mu.Lock()
		h := handlers[n]
		if n < len(handlers)-1 {
			n++
		}
		mu.Unlock()
		return h(req)
	}
}

func fail(err error) handlerFunc {
	return func(*transport.Request) (*transport.Response, error) {
		return nil, err
	}
}

var errConnReset = errors.New("connection reset by peer")

func newTestClient(t *testing.T) (*Client, *fakeDoer) {
	t.Helper()

	doer := newFakeDoer()
	client, err := New(Options{
		Username: "johndoe",
		Password: "janesmith",
		Endpoint: testEndpoint,
		Doer:     doer,
		Logger:   zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client, doer
}

func asError(err error, target **Error) bool {
	return errors.As(err, target)
}

// queryValues converts a recorded query for comparisons
func queryValues(req *transport.Request) url.Values {
	v := url.Values{}
	for k, val := range req.Query {
		v.Set(k, val)
	}
	return v
}
