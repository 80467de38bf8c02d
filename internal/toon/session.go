package toon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// handshakeKey is the singleflight key shared by all concurrent handshakes
const handshakeKey = "handshake"

// Credentials identify the account. They do not change once configured.
type Credentials struct {
	Username string
	Password string
}

// Session is the token set that authorizes session-bearing calls.
// It is replaced wholesale, never modified in place.
type Session struct {
	ClientID            string
	ClientIDChecksum    string
	AgreementID         string
	AgreementIDChecksum string
}

// flexString accepts either a JSON string or a JSON number
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type agreement struct {
	AgreementID         flexString `json:"agreementId"`
	AgreementIDChecksum flexString `json:"agreementIdChecksum"`
}

// loginResponse is the part of the login reply the session is built from
type loginResponse struct {
	ClientID         flexString  `json:"clientId"`
	ClientIDChecksum flexString  `json:"clientIdChecksum"`
	Agreements       []agreement `json:"agreements"`
}

// Sessions owns the current Session and performs the login+start handshake.
//
// Concurrent callers that find no session share a single in-flight handshake
// and all receive its result or failure.
type Sessions struct {
	creds Credentials
	req   *requester
	log   *zap.Logger

	mu      sync.Mutex
	current *Session

	group singleflight.Group
}

func newSessions(creds Credentials, req *requester, log *zap.Logger) *Sessions {
	return &Sessions{creds: creds, req: req, log: log}
}

// Current returns the active session, if any
func (s *Sessions) Current() (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return Session{}, false
	}
	return *s.current, true
}

// Invalidate clears the current session unconditionally
func (s *Sessions) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
}

// invalidateStale clears the current session only if it is still the one that
// failed. A session installed meanwhile by another caller is left alone.
func (s *Sessions) invalidateStale(stale Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || *s.current != stale {
		return false
	}
	s.current = nil
	return true
}

// Ensure returns the current session, performing the handshake if there is none.
//
// Cancelling ctx stops this caller from waiting, but a handshake already in
// flight runs to completion for the other waiters.
func (s *Sessions) Ensure(ctx context.Context) (Session, error) {
	if sess, ok := s.Current(); ok {
		return sess, nil
	}

	hsCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(handshakeKey, func() (any, error) {
		// Another caller may have finished a handshake before this one started
		if sess, ok := s.Current(); ok {
			return sess, nil
		}

		sess, err := s.handshake(hsCtx)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.current = &sess
		s.mu.Unlock()
		return sess, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return Session{}, res.Err
		}
		return res.Val.(Session), nil
	case <-ctx.Done():
		return Session{}, ClassifyTransportError("cancelled while waiting for session", ctx.Err())
	}
}

// handshake logs in and starts a remote session. Neither step is retried.
func (s *Sessions) handshake(ctx context.Context) (Session, error) {
	s.log.Info("Starting session handshake", zap.String("username", s.creds.Username))

	login, err := s.login(ctx)
	if err != nil {
		s.log.Warn("Login failed", zap.Error(err))
		return Session{}, err
	}

	if len(login.Agreements) == 0 {
		return Session{}, NewProtocolError("login response has no agreements", 0, nil, nil)
	}
	first := login.Agreements[0]

	sess := Session{
		ClientID:            string(login.ClientID),
		ClientIDChecksum:    string(login.ClientIDChecksum),
		AgreementID:         string(first.AgreementID),
		AgreementIDChecksum: string(first.AgreementIDChecksum),
	}

	if err := s.start(ctx, sess); err != nil {
		s.log.Warn("Session start failed", zap.Error(err))
		return Session{}, err
	}

	s.log.Info("Session established", zap.String("client_id", sess.ClientID))
	return sess, nil
}

// login trades the credentials for a client id and the agreements list
func (s *Sessions) login(ctx context.Context) (*loginResponse, error) {
	resp, err := s.req.send(ctx, RequestSpec{
		Method: http.MethodPost,
		Path:   PathLogin,
		Form: map[string]string{
			"username": s.creds.Username,
			"password": s.creds.Password,
		},
	}, nil, 1)
	if err != nil {
		var e *Error
		// Parse failures stay protocol errors; any other refusal means the credentials were rejected
		if errors.As(err, &e) && (e.Type == ErrTypeAPI || (e.Type == ErrTypeProtocol && (e.SessionRetry || isAuthStatus(e.StatusCode)))) {
			return nil, asAuthError(e)
		}
		return nil, err
	}

	var login loginResponse
	if err := resp.Decode(&login); err != nil {
		return nil, NewProtocolError("unexpected login response", resp.StatusCode, resp.Body, err)
	}
	if login.ClientID == "" || login.ClientIDChecksum == "" {
		return nil, NewProtocolError("login response missing clientId", resp.StatusCode, resp.Body, nil)
	}

	return &login, nil
}

func isAuthStatus(code int) bool {
	return code == http.StatusUnauthorized || code == http.StatusForbidden
}

// start activates the session on the service. Its reply is discarded.
func (s *Sessions) start(ctx context.Context, sess Session) error {
	_, err := s.req.send(ctx, RequestSpec{
		Method: http.MethodGet,
		Path:   PathStart,
		Query: map[string]string{
			paramClientID:         sess.ClientID,
			paramClientIDChecksum: sess.ClientIDChecksum,
			"agreementId":         sess.AgreementID,
			"agreementIdChecksum": sess.AgreementIDChecksum,
			paramRandom:           NewRandomToken(),
		},
	}, nil, 1)
	return err
}
