// Package api implements the HTTP control API and WebSocket event stream
// for the mixroute engine.
//
// # Endpoints
//
//	GET    /api/v1/health
//	GET    /api/v1/metrics                   JSON system metrics
//	GET    /metrics                          Prometheus exposition
//
//	GET    /api/v1/points?type=&role=       list, by type or source/destination role
//	POST   /api/v1/points                    create and register
//	GET    /api/v1/points/{id}
//	PATCH  /api/v1/points/{id}               name, active, track_id, effect_id
//	DELETE /api/v1/points/{id}               cascades to its routes
//	GET    /api/v1/points/{id}/routes        incoming and outgoing routes
//
//	GET    /api/v1/routes?kind=
//	POST   /api/v1/routes
//	GET    /api/v1/routes/feedback?source=&destination=
//	GET    /api/v1/routes/{id}
//	PATCH  /api/v1/routes/{id}               gain_db, enabled, latency_samples, flags
//	DELETE /api/v1/routes/{id}
//
//	GET    /api/v1/matrix[?format=text]      source × destination grid
//	GET    /api/v1/matrix/stats | cycles | verify
//
//	/api/v1/vca/faders, /api/v1/vca/groups   VCA overlay
//	/api/v1/sidechain/routes, /buses         sidechain overlay
//
//	GET    /api/v1/ws                        WebSocket event stream
//
// # Errors
//
// Domain sentinel errors map to status codes in one place (writeDomainError):
// missing objects are 404, duplicate routes, feedback loops and grouping
// conflicts are 409, and endpoint capability violations are 422.
//
// # WebSocket
//
// Clients subscribe to channels named "{source}.{type}" (for example
// "routing.route_created"). "routing.*" subscribes to every routing event
// and "*" to everything.
package api
