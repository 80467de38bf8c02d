package toon

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muurk/toonapp/internal/logging"
	"github.com/muurk/toonapp/internal/transport"
)

const (
	// DefaultEndpoint is the base URL of the Toon web service.
	// Request paths are appended to it verbatim.
	DefaultEndpoint = "https://toonopafstand.eneco.nl"

	// DefaultReferer is the web front-end URL the service expects in the Referer header
	DefaultReferer = "https://toonopafstand.eneco.nl/index.html"

	// DefaultTimeout is the default per-request timeout
	DefaultTimeout = 10 * time.Second
)

// Service paths
const (
	PathVersion     = "/javascript/version.json"
	PathLogin       = "/toonMobileBackendWeb/client/login"
	PathStart       = "/toonMobileBackendWeb/client/auth/start"
	PathSchemeState = "/toonMobileBackendWeb/client/auth/schemeState"
	PathSetPoint    = "/toonMobileBackendWeb/client/auth/setPoint"
	PathState       = "/toonMobileBackendWeb/client/auth/retrieveToonState"
)

const (
	paramTimestamp        = "_"
	paramRandom           = "random"
	paramClientID         = "clientId"
	paramClientIDChecksum = "clientIdChecksum"
)

// RequestSpec describes one call to the service, independent of session state
type RequestSpec struct {
	Method          string
	Path            string
	Query           map[string]string
	Headers         map[string]string
	Form            map[string]string // Optional body fields
	RequiresSession bool
	Timeout         time.Duration // 0 uses the client default
}

// NewRandomToken returns a hyphen-grouped hexadecimal token (8-4-4-4-12).
// The service expects one as a cache buster; uniqueness does not matter.
func NewRandomToken() string {
	return uuid.NewString()
}

// requester turns a RequestSpec into a transport call and interprets the reply.
// It is shared by the session handshake and the public operations.
type requester struct {
	doer     transport.Doer
	endpoint string
	referer  string
	timeout  time.Duration
	log      *zap.Logger
	now      func() time.Time
}

// send performs a single attempt. When sess is non-nil its client id and
// checksum are attached to the query.
func (r *requester) send(ctx context.Context, spec RequestSpec, sess *Session, attempt int) (*Response, error) {
	query := make(map[string]string, len(spec.Query)+3)
	for k, v := range spec.Query {
		query[k] = v
	}
	query[paramTimestamp] = strconv.FormatInt(r.now().UnixMilli(), 10)
	if sess != nil {
		query[paramClientID] = sess.ClientID
		query[paramClientIDChecksum] = sess.ClientIDChecksum
	}

	headers := make(map[string]string, len(spec.Headers)+1)
	for k, v := range spec.Headers {
		headers[k] = v
	}
	headers["Referer"] = r.referer

	method := spec.Method
	if method == "" {
		method = http.MethodGet
	}

	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = r.timeout
	}

	logging.LogAPIRequest(r.log, method, spec.Path, query, attempt)

	res, err := r.doer.Do(ctx, &transport.Request{
		Method:  method,
		URL:     r.endpoint + spec.Path,
		Query:   query,
		Headers: headers,
		Form:    spec.Form,
		Timeout: timeout,
	})
	if err != nil {
		r.log.Debug("API request failed", zap.String("path", spec.Path), zap.Error(err))
		return nil, ClassifyTransportError("request failed", err)
	}

	logging.LogAPIResponse(r.log, spec.Path, res.StatusCode, res.Body)

	return decodeEnvelope(res.StatusCode, res.Body)
}
