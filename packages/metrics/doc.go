// Package metrics records request attempts made by the fetch client.
//
// A Recorder implements http.Observer. Install it with
// http.WithObserver and read latency percentiles, status classes and retry
// counts from Summary.
package metrics
