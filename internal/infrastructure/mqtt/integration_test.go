//go:build integration

package mqtt

import (
	"testing"
	"time"
)

// Integration tests require a running MQTT broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/mqtt/...

func TestIntegration_ConnectClose(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.ClientID = "hsbridge-int-connect"

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect")
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close")
	}
}

func TestIntegration_CommandRoundtrip(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.ClientID = "hsbridge-int-roundtrip"

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	topics := Topics{}
	received := make(chan string, 1)
	err = client.Subscribe(topics.BridgeCommands("haassohn-int"), 1, func(topic string, payload []byte) error {
		received <- topics.AddressFromTopic(topic, "command", "haassohn-int") + "=" + string(payload)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if _, ok := trackedSubscriptions(client, topics.BridgeCommands("haassohn-int")); !ok {
		t.Error("subscription not tracked")
	}

	time.Sleep(100 * time.Millisecond)

	if err := client.Publish(topics.BridgeCommand("haassohn-int", "device.prg"), []byte(`{"value":true}`), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case got := <-received:
		if got != `device.prg={"value":true}` {
			t.Errorf("received %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("message not received")
	}

	if err := client.Unsubscribe(topics.BridgeCommands("haassohn-int")); err != nil {
		t.Errorf("Unsubscribe() error = %v", err)
	}
	if n, _ := trackedSubscriptions(client, ""); n != 0 {
		t.Errorf("tracked subscriptions = %d, want 0", n)
	}
}
