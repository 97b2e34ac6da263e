// Package http exposes attached device sessions over a small JSON API.
package http
