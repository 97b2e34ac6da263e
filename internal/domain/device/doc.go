// Package device defines the types shared by every device-session component.
//
// A connected device is reached through an Adapter, one instance per device.
// The adapter exposes primitive probes (installed apps, debuggable apps, debug
// web views) and lifecycle commands. Components in sibling packages consume
// the adapter and never interpret its internals:
//
//   - lifecycle: polls the adapter and emits found/lost/changed events
//   - sockets: caches one livesync/debug Channel per application
//   - logs: shapes raw LogLine text into filtered, colored records
//
// The package also provides Diff, the order-preserving set difference used to
// reconcile successive snapshots.
package device
