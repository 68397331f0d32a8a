// Package events publishes agent change notifications to an optional
// downstream transport. Publication is best-effort and never blocks the
// HTTP response on delivery guarantees.
package events
