package utils

import (
	"fmt"
	"regexp"
)

// MaxIDLength bounds device and application identifiers.
const MaxIDLength = 256

var (
	// AppIDPattern matches bundle and package identifiers such as
	// org.nativescript.demo.
	AppIDPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
	// DeviceIDPattern matches serials, UDIDs and host:port addresses of
	// network-attached devices.
	DeviceIDPattern = regexp.MustCompile(`^[a-zA-Z0-9._:-]+$`)
)

// ValidateAppIdentifier checks an application identifier.
func ValidateAppIdentifier(id string) error {
	return validateID("application identifier", id, AppIDPattern)
}

// ValidateDeviceIdentifier checks a device identifier.
func ValidateDeviceIdentifier(id string) error {
	return validateID("device identifier", id, DeviceIDPattern)
}

func validateID(kind, id string, pattern *regexp.Regexp) error {
	switch {
	case id == "":
		return fmt.Errorf("%s is required", kind)
	case len(id) > MaxIDLength:
		return fmt.Errorf("%s exceeds %d characters", kind, MaxIDLength)
	case !pattern.MatchString(id):
		return fmt.Errorf("%s %q contains invalid characters", kind, id)
	}
	return nil
}
