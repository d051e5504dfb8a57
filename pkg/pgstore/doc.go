// Package pgstore provides PostgreSQL implementations of the billing
// persistence interfaces, backed by a pgx connection pool.
//
// Customer updates are applied as a single INSERT ... ON CONFLICT statement
// so concurrent webhook deliveries and portal commands cannot lose each
// other's column writes. Subscription rows are overwritten wholesale from
// provider payloads, keyed by the provider subscription ID.
package pgstore
