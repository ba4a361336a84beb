// Package mqtt connects the bridge to the hub's MQTT broker.
//
// The bridge mirrors its host state store onto MQTT:
//
//	graylogic/state/haassohn/<path>    retained, acknowledged values
//	graylogic/command/haassohn/<path>  writes from the hub (subscribed)
//	graylogic/ack/haassohn/<path>      command outcomes
//	graylogic/health/haassohn          retained bridge health
//	graylogic/system/<client>/status   online/offline with Last Will
//
// The client reconnects automatically with bounded backoff and restores its
// subscriptions after every reconnect.
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.BridgeCommands("haassohn"), 1,
//	    func(topic string, payload []byte) error {
//	        return handle(topic, payload)
//	    })
package mqtt
