// Package subscriber implements subscriber management.
//
// The service layer owns validation (duplicate emails are rejected before
// any state change) and normalization (emails are compared
// case-insensitively). It depends on the repository interface defined in
// this package and should never import from api/.
//
// Repository implementations live in repository/postgres/.
package subscriber
