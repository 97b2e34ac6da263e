// Package utils holds small validation helpers shared by the config loader
// and the API.
package utils
