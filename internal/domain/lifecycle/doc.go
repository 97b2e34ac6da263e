// Package lifecycle tracks what is installed and debuggable on one device.
//
// A Tracker polls a device.Adapter and reconciles each result against the
// previous snapshot:
//
//	installed apps     -> ApplicationInstalled / ApplicationUninstalled
//	debuggable apps    -> DebuggableAppFound / DebuggableAppLost
//	debug web views    -> DebuggableViewFound / DebuggableViewLost / DebuggableViewChanged
//
// Rounds are single-flight: callers that arrive while a round is running wait
// for that round instead of starting another. A round either probes
// everything successfully and commits, or fails and leaves every snapshot as
// it was.
package lifecycle
