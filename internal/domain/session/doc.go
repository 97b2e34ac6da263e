// Package session attaches devices and runs their background work.
//
// Each attached device gets a lifecycle tracker driven by a poller, a socket
// registry and, when its adapter streams logs, a reader feeding the shared
// log pipeline.
//
// Components:
//   - Manager: attach, detach and look up device sessions
//   - Session: tracker, socket registry and adapter of one device
//
// Detach and Shutdown stop the background work of a device before closing
// its cached sockets.
//
// Example Usage:
//
//	manager := session.NewManager(pipeline, 3*time.Second).WithLogger(logger)
//	s, err := manager.Attach(ctx, info, adapter, session.Options{ProjectDir: dir})
//	ch, err := s.Sockets.GetDebugSocket(ctx, "org.demo")
//	err = manager.Shutdown()
package session
