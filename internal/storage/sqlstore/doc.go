// Package sqlstore provides the bounded connection pool and the agents/company
// repository backed by MySQL/MariaDB or PostgreSQL. Every statement is
// parameterized; queries are written with '?' placeholders and rebound for the
// active driver.
package sqlstore
