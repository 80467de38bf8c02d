package toon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/toonapp/internal/transport"
)

var tokenPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(Options{Username: "johndoe"})
	if !IsValidationError(err) {
		t.Errorf("New() without password error = %v, want validation error", err)
	}

	_, err = New(Options{Password: "janesmith"})
	if !IsValidationError(err) {
		t.Errorf("New() without username error = %v, want validation error", err)
	}
}

func TestNew_Defaults(t *testing.T) {
	client, err := New(Options{Username: "johndoe", Password: "janesmith"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if client.req.endpoint != DefaultEndpoint {
		t.Errorf("endpoint = %s, want %s", client.req.endpoint, DefaultEndpoint)
	}
	if client.req.referer != DefaultReferer {
		t.Errorf("referer = %s, want %s", client.req.referer, DefaultReferer)
	}
	if client.req.timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", client.req.timeout, DefaultTimeout)
	}
	if _, ok := client.req.doer.(*transport.HTTPDoer); !ok {
		t.Errorf("doer = %T, want *transport.HTTPDoer", client.req.doer)
	}
	if _, ok := client.Sessions().Current(); ok {
		t.Error("a new client should have no session")
	}
}

func TestGetVersion_StripsLeadingComment(t *testing.T) {
	client, doer := newTestClient(t)
	doer.handle(PathVersion, reply(http.StatusOK, `<!-- x -->{"success":true,"appVersion":"1.2"}`))

	resp, err := client.GetVersion(context.Background())
	if err != nil {
		t.Fatalf("GetVersion() error = %v", err)
	}

	if string(resp.Body) != `{"success":true,"appVersion":"1.2"}` {
		t.Errorf("Body = %s", resp.Body)
	}
	if resp.Data["success"] != true {
		t.Errorf("success = %v, want true", resp.Data["success"])
	}
	if resp.Data["appVersion"] != "1.2" {
		t.Errorf("appVersion = %v, want 1.2", resp.Data["appVersion"])
	}
}

func TestGetVersion_NeverHandshakes(t *testing.T) {
	client, doer := newTestClient(t)
	doer.handle(PathVersion, reply(http.StatusInternalServerError, `{"success":false,"reason":"down"}`))

	_, err := client.GetVersion(context.Background())
	if !IsAPIError(err) {
		t.Fatalf("GetVersion() error = %v, want API error", err)
	}

	if n := doer.count(PathLogin); n != 0 {
		t.Errorf("login calls = %d, want 0", n)
	}
	if n := doer.count(PathVersion); n != 1 {
		t.Errorf("version calls = %d, want 1 (no retry)", n)
	}
	if _, has := doer.calls(PathVersion)[0].Query[paramClientID]; has {
		t.Error("version request must not carry a client id without a session")
	}
}

func TestGetVersion_CarriesExistingSession(t *testing.T) {
	client, doer := newTestClient(t)

	if _, err := client.GetState(context.Background()); err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if _, err := client.GetVersion(context.Background()); err != nil {
		t.Fatalf("GetVersion() error = %v", err)
	}

	q := doer.calls(PathVersion)[0].Query
	if q[paramClientID] != "a" || q[paramClientIDChecksum] != "b" {
		t.Errorf("version query = %v, want session params", q)
	}
	if n := doer.count(PathLogin); n != 1 {
		t.Errorf("login calls = %d, want 1", n)
	}
}

func TestRequests_CarryRefererAndTimestamp(t *testing.T) {
	client, doer := newTestClient(t)

	if _, err := client.GetState(context.Background()); err != nil {
		t.Fatalf("GetState() error = %v", err)
	}

	doer.mu.Lock()
	requests := append([]*transport.Request(nil), doer.requests...)
	doer.mu.Unlock()

	if len(requests) != 3 {
		t.Fatalf("requests = %d, want 3 (login, start, state)", len(requests))
	}
	for _, r := range requests {
		if r.Headers["Referer"] != DefaultReferer {
			t.Errorf("%s Referer = %q, want %q", r.URL, r.Headers["Referer"], DefaultReferer)
		}
		if _, err := strconv.ParseInt(r.Query[paramTimestamp], 10, 64); err != nil {
			t.Errorf("%s timestamp = %q, want a number", r.URL, r.Query[paramTimestamp])
		}
		if r.Timeout != DefaultTimeout {
			t.Errorf("%s timeout = %v, want %v", r.URL, r.Timeout, DefaultTimeout)
		}
	}
}

func TestSetTemperature_ValueVerbatim(t *testing.T) {
	client, doer := newTestClient(t)

	if _, err := client.SetTemperature(context.Background(), 1847); err != nil {
		t.Fatalf("SetTemperature() error = %v", err)
	}

	calls := doer.calls(PathSetPoint)
	if len(calls) != 1 {
		t.Fatalf("setPoint calls = %d, want 1", len(calls))
	}
	q := calls[0].Query
	if q["value"] != "1847" {
		t.Errorf("value = %q, want 1847", q["value"])
	}
	if q[paramClientID] != "a" || q[paramClientIDChecksum] != "b" {
		t.Errorf("session params missing: %v", q)
	}
	if !tokenPattern.MatchString(q[paramRandom]) {
		t.Errorf("random = %q, want hyphen-grouped hex", q[paramRandom])
	}
}

func TestSetPreset_Query(t *testing.T) {
	client, doer := newTestClient(t)

	if _, err := client.SetPreset(context.Background(), PresetAway); err != nil {
		t.Fatalf("SetPreset() error = %v", err)
	}

	q := doer.calls(PathSchemeState)[0].Query
	if q["state"] != "2" {
		t.Errorf("state = %q, want 2", q["state"])
	}
	if q["temperatureState"] != "3" {
		t.Errorf("temperatureState = %q, want 3", q["temperatureState"])
	}
	if doer.calls(PathSchemeState)[0].Method != http.MethodGet {
		t.Errorf("method = %s, want GET", doer.calls(PathSchemeState)[0].Method)
	}
}

func TestGetState_HandshakeOnce(t *testing.T) {
	client, doer := newTestClient(t)

	for i := 0; i < 3; i++ {
		resp, err := client.GetState(context.Background())
		if err != nil {
			t.Fatalf("GetState() #%d error = %v", i, err)
		}
		if resp.Data["thermostatInfo"] == nil {
			t.Errorf("GetState() #%d missing thermostatInfo", i)
		}
	}

	if n := doer.count(PathLogin); n != 1 {
		t.Errorf("login calls = %d, want 1", n)
	}
	if n := doer.count(PathStart); n != 1 {
		t.Errorf("start calls = %d, want 1", n)
	}
	if n := doer.count(PathState); n != 3 {
		t.Errorf("state calls = %d, want 3", n)
	}
}

func TestRetry_ReauthenticatesOnce(t *testing.T) {
	client, doer := newTestClient(t)
	doer.handle(PathLogin, sequence(
		reply(http.StatusOK, mockLoginResponse),
		reply(http.StatusOK, `{"clientId":"a2","clientIdChecksum":"b2","agreements":[{"agreementId":"x","agreementIdChecksum":"y"}]}`),
	))
	doer.handle(PathState, sequence(
		reply(http.StatusInternalServerError, `{"success":false,"errorCode":"4","reason":"session expired"}`),
		reply(http.StatusOK, mockStateResponse),
	))

	resp, err := client.GetState(context.Background())
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}

	if n := doer.count(PathLogin); n != 2 {
		t.Errorf("login calls = %d, want 2", n)
	}
	if n := doer.count(PathStart); n != 2 {
		t.Errorf("start calls = %d, want 2", n)
	}

	calls := doer.calls(PathState)
	if len(calls) != 2 {
		t.Fatalf("state calls = %d, want 2", len(calls))
	}
	if calls[1].Query[paramClientID] != "a2" {
		t.Errorf("retry clientId = %q, want a2", calls[1].Query[paramClientID])
	}
	if calls[0].Query[paramRandom] != calls[1].Query[paramRandom] {
		t.Error("retry should reissue the same request parameters")
	}

	sess, ok := client.Sessions().Current()
	if !ok || sess.ClientID != "a2" {
		t.Errorf("Current() = %+v, %v; want fresh session a2", sess, ok)
	}
}

func TestRetry_SecondFailureSurfaced(t *testing.T) {
	client, doer := newTestClient(t)
	doer.handle(PathSetPoint, reply(http.StatusOK, `{"success":false,"errorCode":"12","reason":"invalid value"}`))

	_, err := client.SetTemperature(context.Background(), 99999)
	if !IsAPIError(err) {
		t.Fatalf("SetTemperature() error = %v, want API error", err)
	}

	var e *Error
	if !asError(err, &e) {
		t.Fatal("error should be *Error")
	}
	if e.ErrorCode != "12" || e.Reason != "invalid value" {
		t.Errorf("ErrorCode/Reason = %q/%q", e.ErrorCode, e.Reason)
	}
	if e.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", e.StatusCode)
	}
	if len(e.Body) == 0 {
		t.Error("error should carry the raw body")
	}

	if n := doer.count(PathSetPoint); n != 2 {
		t.Errorf("setPoint calls = %d, want exactly 2", n)
	}
	if n := doer.count(PathLogin); n != 2 {
		t.Errorf("login calls = %d, want 2", n)
	}
}

func TestRetry_UnsuccessfulEnvelopeWithoutCode(t *testing.T) {
	client, doer := newTestClient(t)
	doer.handle(PathState, sequence(
		reply(http.StatusInternalServerError, `{}`),
		reply(http.StatusOK, mockStateResponse),
	))

	if _, err := client.GetState(context.Background()); err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if n := doer.count(PathState); n != 2 {
		t.Errorf("state calls = %d, want 2", n)
	}
}

func TestRetry_NotOnTransportError(t *testing.T) {
	client, doer := newTestClient(t)
	doer.handle(PathState, fail(errConnReset))

	_, err := client.GetState(context.Background())
	if !IsTransportError(err) {
		t.Fatalf("GetState() error = %v, want transport error", err)
	}

	if n := doer.count(PathState); n != 1 {
		t.Errorf("state calls = %d, want 1", n)
	}
	if n := doer.count(PathLogin); n != 1 {
		t.Errorf("login calls = %d, want 1", n)
	}
	if _, ok := client.Sessions().Current(); !ok {
		t.Error("a transport failure must not invalidate the session")
	}
}

func TestRetry_NotOnParseError(t *testing.T) {
	client, doer := newTestClient(t)
	doer.handle(PathState, reply(http.StatusOK, `<html>maintenance</html>`))

	_, err := client.GetState(context.Background())
	if !IsProtocolError(err) {
		t.Fatalf("GetState() error = %v, want protocol error", err)
	}

	var e *Error
	if asError(err, &e) && string(e.Body) != `<html>maintenance</html>` {
		t.Errorf("Body = %q", e.Body)
	}
	if n := doer.count(PathState); n != 1 {
		t.Errorf("state calls = %d, want 1", n)
	}
}

func TestRetry_HandshakeFailurePropagates(t *testing.T) {
	client, doer := newTestClient(t)
	doer.handle(PathLogin, sequence(
		reply(http.StatusOK, mockLoginResponse),
		reply(http.StatusOK, `{"success":false,"reason":"too many sessions"}`),
	))
	doer.handle(PathState, reply(http.StatusOK, `{"success":false,"reason":"session expired"}`))

	_, err := client.GetState(context.Background())
	if !IsAuthError(err) {
		t.Fatalf("GetState() error = %v, want auth error from the second login", err)
	}
	if n := doer.count(PathState); n != 1 {
		t.Errorf("state calls = %d, want 1", n)
	}
}

func TestGetState_ConcurrentCallsShareHandshake(t *testing.T) {
	client, doer := newTestClient(t)
	doer.handle(PathLogin, func(req *transport.Request) (*transport.Response, error) {
		time.Sleep(50 * time.Millisecond)
		return reply(http.StatusOK, mockLoginResponse)(req)
	})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = client.GetState(context.Background())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("GetState() #%d error = %v", i, err)
		}
	}
	if n := doer.count(PathLogin); n != 1 {
		t.Errorf("login calls = %d, want 1", n)
	}
	if n := doer.count(PathStart); n != 1 {
		t.Errorf("start calls = %d, want 1", n)
	}
	if n := doer.count(PathState); n != 2 {
		t.Errorf("state calls = %d, want 2", n)
	}
}

func TestClient_AgainstHTTPServer(t *testing.T) {
	var mu sync.Mutex
	logins := 0

	mux := http.NewServeMux()
	mux.HandleFunc(PathLogin, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("login method = %s, want POST", r.Method)
		}
		if r.FormValue("username") != "johndoe" || r.FormValue("password") != "janesmith" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"success":false,"reason":"bad credentials"}`))
			return
		}
		mu.Lock()
		logins++
		mu.Unlock()
		w.Write([]byte(mockLoginResponse))
	})
	mux.HandleFunc(PathStart, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("clientId") != "a" || q.Get("clientIdChecksum") != "b" ||
			q.Get("agreementId") != "x" || q.Get("agreementIdChecksum") != "y" {
			t.Errorf("start query = %v", q)
		}
		w.Write([]byte(mockStartResponse))
	})
	mux.HandleFunc(PathSetPoint, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Referer") != DefaultReferer {
			t.Errorf("Referer = %q", r.Header.Get("Referer"))
		}
		if r.URL.Query().Get("value") != "1800" {
			t.Errorf("value = %q, want 1800", r.URL.Query().Get("value"))
		}
		w.Write([]byte(`<!-- served by toon -->` + "\n" + `{"success":true}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client, err := New(Options{
		Username: "johndoe",
		Password: "janesmith",
		Endpoint: server.URL,
		Timeout:  2 * time.Second,
		Logger:   zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	resp, err := client.SetTemperature(context.Background(), 1800)
	if err != nil {
		t.Fatalf("SetTemperature() error = %v", err)
	}
	if ok, present := resp.Success(); !ok || !present {
		t.Errorf("Success() = %v, %v; want true, true", ok, present)
	}
	mu.Lock()
	defer mu.Unlock()
	if logins != 1 {
		t.Errorf("logins = %d, want 1", logins)
	}
}
