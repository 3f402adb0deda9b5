// Package ws implements the live calculator for fractalscope-server.
//
// Every WebSocket connection owns one form.Form. The client edits it with
// frames and the hub answers each frame with the full form state, so the UI
// only ever renders what the server sent.
//
// New(cal, rec, maxClients) creates a Hub.
// Hub.Run(ctx) recalculates open forms when the threshold is reloaded and
// blocks until ctx is cancelled, then closes all active connections.
// Hub.ServeHTTP upgrades an HTTP connection to WebSocket and sends the empty
// form state immediately on connect.
//
// Client frames:
//
//	{"event": "input", "data": {"n1": "10", "s2": 1000}}
//	{"event": "calculate"}
//
// Input frames may carry any subset of n1, s1, n2, s2 as strings or numbers.
//
// Server frames:
//
//	{"event": "state", "data": { /* form.View */ }}
//	{"event": "error", "data": {"error": "unknown event \"x\""}}
//
// The upgrader accepts all origins. Apply CORS restrictions at the reverse
// proxy level. The endpoint is mounted at /ws/estimate by the server.
package ws
