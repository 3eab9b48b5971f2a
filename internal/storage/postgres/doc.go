// Package postgres implements the auth storage interfaces on top of a
// pgx connection pool. Email uniqueness is enforced by the users table
// unique constraint; violation maps to auth.ErrEmailAlreadyExists.
package postgres
