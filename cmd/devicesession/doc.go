/*
Devicesession attaches development devices through their agents, tracks
installed and debuggable applications, and streams device output.

Usage:

	devicesession [flags]

The flags are:

	-port string
		HTTP port of the inspection API (default from PORT, 8090)
	-devices string
		device inventory file, .yaml or .toml (default from DEVICES_FILE)
	-dev
		development logging at debug level
	-log-level string
		default device log level, INFO or FULL (default from DEVICE_LOG_LEVEL)

Every other setting is read from the environment; see internal/infrastructure/config.
*/
package main
