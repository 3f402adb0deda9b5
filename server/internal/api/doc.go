// Package api implements the HTTP REST API for the fractalscope server.
//
// New(calibration, recorder, version) returns an http.Handler that serves:
//
//	POST /api/v1/estimate   body {"n1","s1","n2","s2"}; values may be JSON strings or numbers
//	GET  /api/v1/estimate   same, from the n1/s1/n2/s2 query parameters
//	GET  /api/v1/threshold  active threshold, its version and when it was installed
//	GET  /api/v1/health     liveness plus server version and threshold
//
// All endpoints:
//   - Respond with Content-Type: application/json
//   - Return 405 for methods not listed above
//   - Carry a request ID in the X-Request-Id header and the request_id field;
//     a valid UUID supplied by the client is reused, otherwise one is generated
//   - Are logged with slog once the response is written
//
// Estimate responses are either 200 with a result or 422 with a user-facing
// error message and code, never both. Malformed JSON is a 400.
//
// JSON types are defined in types.go, fit diagnostics in diagnostics.go.
package api
