// Package prometheus renders authclient metrics in the Prometheus text
// exposition format.
//
// [New] reads an [authclient.Manager] and exposes an [http.Handler] for a
// scrape endpoint. Counter names are prefixed authclient_ and end in _total;
// the single histogram is authclient_request_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global registry. Callers mount the Handler.
//   - Change the session.
package prometheus
