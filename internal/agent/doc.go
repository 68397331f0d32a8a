// Package agent holds the agents/company domain: record types, the Store
// contract implemented by the SQL and in-memory backends, request validation
// and the Service used by the HTTP layer.
package agent
