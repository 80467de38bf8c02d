// Package toon provides a client for the Toon thermostat web service.
//
// The client authenticates with a username and password, keeps the resulting
// session, and exposes four operations: GetVersion, SetPreset, SetTemperature
// and GetState.
//
// # Usage Example
//
//	client, err := toon.New(toon.Options{
//	    Username: "johndoe",
//	    Password: os.Getenv("TOONAPP_PASSWORD"),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// 1847 = 18.47°C, the display rounds to 18.5
//	if _, err := client.SetTemperature(ctx, 1847); err != nil {
//	    log.Fatal(toon.GetShortErrorMessage(err))
//	}
//
// # Sessions
//
// A session is obtained with a two-step handshake: a login POST that returns a
// client id, its checksum and a list of agreements, followed by a start GET
// that activates the first agreement. The Sessions manager performs the
// handshake lazily on the first session-bearing call. Concurrent callers that
// find no session share one in-flight handshake.
//
// The service allows at most four concurrent sessions per account. The client
// opens at most one per handshake and reuses it until the service rejects it.
//
// # Retry Policy
//
// When a session-bearing call fails with an application error (or any
// unsuccessful reply that is not a transport or parse failure), the client
// drops the session, performs one fresh handshake and reissues the same
// request once. A second failure is returned as-is. Calls that do not need a
// session are never retried.
//
// # Responses
//
// Replies are JSON, sometimes preceded by an HTML comment which is stripped.
// A reply counts as successful when it carries "success": true, or when the
// status is 200 and it does not carry "success": false.
//
// # Error Handling
//
// Every failure is an *Error whose Type is one of ErrTypeTransport,
// ErrTypeProtocol, ErrTypeAuth, ErrTypeAPI or ErrTypeValidation. Errors keep
// the raw body, status code and underlying cause for diagnostics.
package toon
