// Package logging provides structured logging for the Toon client and CLI.
//
// This package wraps a zap logger with convenience functions. It is silent by
// default: nothing is written until Initialize is called with a level or the
// TOONAPP_LOG_LEVEL environment variable is set.
//
// # Log Levels
//
//   - Debug: every API request and response (query masked, body truncated)
//   - Info: session handshakes
//   - Warn: session invalidation and the one-time retry
//   - Error: failures surfaced to the CLI user
//
// # Redaction
//
// Passwords and checksum tokens never reach the log. RedactQuery masks them:
//
//	logging.RedactQuery(map[string]string{"clientId": "a", "clientIdChecksum": "b"})
//	// clientId=a&clientIdChecksum=***
//
// # Configuration
//
//	if err := logging.Initialize("debug"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// Output goes to stderr in console format so that JSON written to stdout by
// the CLI stays machine readable.
package logging
