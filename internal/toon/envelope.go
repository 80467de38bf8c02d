package toon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
)

// leadingComment matches one HTML comment at the start of a body.
// The service prefixes some JSON responses with a decoy comment.
var leadingComment = regexp.MustCompile(`^\s*<!--(?s:.*?)-->`)

// Response is a successful reply from the service
type Response struct {
	// StatusCode is the HTTP status of the reply
	StatusCode int

	// Body is the JSON payload with any leading HTML comment removed
	Body json.RawMessage

	// Data is the payload decoded as an object (nil when the payload is not an object).
	// Numbers are kept as json.Number.
	Data map[string]any
}

// Decode unmarshals the payload into v
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Success reports the payload's own success flag, if it carries one
func (r *Response) Success() (value, present bool) {
	value, present = r.Data["success"].(bool)
	return value, present
}

// StripComments removes any HTML comments preceding the JSON body
func StripComments(body []byte) []byte {
	for {
		loc := leadingComment.FindIndex(body)
		if loc == nil {
			break
		}
		body = body[loc[1]:]
	}
	return bytes.TrimSpace(body)
}

// decodeEnvelope interprets a raw reply as either a success payload or an error.
//
// A reply is successful when it carries "success": true, or when the status is
// 200 and it does not carry "success": false. The service emits the flag
// inconsistently so both signals are honoured.
func decodeEnvelope(statusCode int, raw []byte) (*Response, error) {
	body := StripComments(raw)

	var data any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&data); err != nil {
		return nil, NewProtocolError("invalid response", statusCode, raw, err)
	}
	if dec.More() {
		return nil, NewProtocolError("invalid response", statusCode, raw, fmt.Errorf("trailing data after JSON value"))
	}

	obj, _ := data.(map[string]any)
	resp := &Response{
		StatusCode: statusCode,
		Body:       json.RawMessage(body),
		Data:       obj,
	}

	success, hasFlag := resp.Success()
	if success || (statusCode == http.StatusOK && !hasFlag) {
		return resp, nil
	}

	errorCode := stringField(obj, "errorCode")
	reason := stringField(obj, "reason")
	if errorCode != "" || reason != "" {
		return nil, NewAPIError(statusCode, errorCode, reason, raw)
	}

	e := NewProtocolError("unsuccessful response", statusCode, raw, nil)
	e.SessionRetry = true
	return nil, e
}

// stringField renders a scalar field of obj as a string ("" when absent or null)
func stringField(obj map[string]any, key string) string {
	switch v := obj[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}
