// Package relay forwards lifecycle events from the routing matrix, the VCA
// manager and the sidechain matrix to external subscribers.
//
// Domain components call their event handlers synchronously on whichever
// goroutine made the change. The relay's handlers only enqueue into a
// bounded channel, so a slow broker or WebSocket client never stalls a
// control call:
//
//	routing.Matrix.OnEvent ──┐
//	vca.Manager.OnEvent    ──┼─► enqueue ─► chan Message ─► Run ─┬─► Publisher   (MQTT)
//	sidechain.Matrix.OnEvent ┘   (drop when full)                └─► Broadcaster (WebSocket)
//
// MQTT topics follow mixroute/core/event/{type}; WebSocket channels are
// "{source}.{type}", e.g. "routing.route_created".
//
// # Thread Safety
//
// Attach* and Stats are safe for concurrent use. Run must be called once.
package relay
