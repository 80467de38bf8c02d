// Package transport performs the raw HTTP exchanges used by the Toon client.
//
// The rest of the module only depends on the Doer interface: a request goes in
// (method, URL, query parameters, headers, optional form body, timeout) and a
// status code plus body bytes come out. HTTPDoer is the net/http backed
// implementation used in production; tests substitute a recording fake.
//
// # Timeouts
//
// Each Request carries its own timeout. HTTPDoer applies it with
// context.WithTimeout so a slow call never outlives the caller's budget, and a
// timed-out call surfaces as an ordinary error for the caller to classify.
//
// # Thread Safety
//
// HTTPDoer is safe for concurrent use; it shares a single http.Client.
package transport
