// Package api exposes the agents gateway over HTTP: agent and company CRUD,
// the /say relay, health, metrics and a generated OpenAPI document. A single
// route table drives both request dispatch and the documentation.
package api
