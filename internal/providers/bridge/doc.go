/*
Package bridge implements device.Adapter against a device agent.

The agent is a small HTTP service running next to a device (an adb or
usbmux wrapper) that exposes the device's application manager:

	GET    /apps                        installed app ids
	GET    /apps/{id}                   application info
	GET    /apps/{id}/livesync          websocket, livesync channel
	GET    /apps/{id}/debug             websocket, debug channel
	GET    /apps/{id}/livesync-support  {"supported": bool}
	POST   /apps                        install {"packagePath","appId"}
	DELETE /apps/{id}                   uninstall
	POST   /apps/{id}/start             start with AppData
	POST   /apps/{id}/stop              stop with AppData
	GET    /debuggable                  debuggable apps
	GET    /debuggable/views?app=...    debug web views per app
	GET    /logs                        websocket, {"text": "..."} frames

Read-only probes are retried by the transport; commands are sent once. All
calls pass through a circuit breaker so an unreachable agent fails fast.
*/
package bridge
