// Package middleware provides the gin middleware of the inspection API.
package middleware
