// Package mqtt connects the mixroute engine to an MQTT broker.
//
// The engine publishes routing, VCA and sidechain lifecycle events so that
// control surfaces and automation can follow the session without polling
// the HTTP API:
//
//	routing.Matrix ─┐
//	vca.Manager    ─┼─► relay ─► mqtt.Client ─► broker ─► mixroute/core/event/{type}
//	sidechain      ─┘
//
// The client keeps a retained status message on mixroute/system/status and
// registers a Last Will so subscribers notice an unexpected disconnect.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.CoreEvent("route_created")
//	err = client.PublishJSON(topic, event)
//
// Publishing never happens on the audio thread; the relay calls it from
// its own goroutine.
package mqtt
