package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	commsserver "github.com/nats-io/nats-server/v2/server"
	comms "github.com/nats-io/nats.go"
)

// startTestServer starts an in-process NATS server for testing.
func startTestServer(t *testing.T, port int) (*comms.Conn, func()) {
	t.Helper()

	opts := &commsserver.Options{
		Host:   "127.0.0.1",
		Port:   port,
		NoLog:  true,
		NoSigs: true,
	}

	ns, err := commsserver.NewServer(opts)
	if err != nil {
		t.Fatalf("events:comms_publisher_integration_test - failed to create server: %v", err)
	}

	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		t.Fatal("events:comms_publisher_integration_test - server failed to start")
	}

	nc, err := comms.Connect(ns.ClientURL(), comms.Timeout(5*time.Second))
	if err != nil {
		ns.Shutdown()
		t.Fatalf("events:comms_publisher_integration_test - failed to connect: %v", err)
	}

	cleanup := func() {
		nc.Close()
		ns.Shutdown()
		ns.WaitForShutdown()
	}

	return nc, cleanup
}

func TestCommsPublisher_PublishInvoked_KeySubject(t *testing.T) {
	nc, cleanup := startTestServer(t, 14330)
	defer cleanup()

	publisher := NewCommsPublisher(nc, nil)

	received := make(chan *InvokedEvent, 1)
	sub, err := nc.Subscribe("registry.invoked.tabs.>", func(msg *comms.Msg) {
		var event InvokedEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			t.Errorf("events:comms_publisher_integration_test - failed to unmarshal: %v", err)
			return
		}
		received <- &event
	})
	if err != nil {
		t.Fatalf("events:comms_publisher_integration_test - failed to subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	event := &InvokedEvent{
		Key:       "tabs.activate.shift",
		Params:    []string{"shift"},
		Succeeded: true,
		Timestamp: "2025-01-01T00:00:00Z",
	}

	if err := publisher.PublishInvoked(context.Background(), event); err != nil {
		t.Fatalf("events:comms_publisher_integration_test - PublishInvoked failed: %v", err)
	}
	nc.Flush()

	select {
	case got := <-received:
		if got.Key != "tabs.activate.shift" {
			t.Errorf("events:comms_publisher_integration_test - Key = %q, want %q", got.Key, "tabs.activate.shift")
		}
		if !got.Succeeded {
			t.Error("events:comms_publisher_integration_test - expected Succeeded=true")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("events:comms_publisher_integration_test - timeout waiting for key event")
	}
}

func TestCommsPublisher_PublishInvoked_CustomGlobalSubject(t *testing.T) {
	nc, cleanup := startTestServer(t, 14331)
	defer cleanup()

	publisher := NewCommsPublisher(nc, &CommsPublisherOpts{GlobalSubject: "custom.invoked"})

	received := make(chan *InvokedEvent, 1)
	sub, err := nc.Subscribe("custom.invoked", func(msg *comms.Msg) {
		var event InvokedEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			return
		}
		received <- &event
	})
	if err != nil {
		t.Fatalf("events:comms_publisher_integration_test - failed to subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	event := &InvokedEvent{
		Key:       "windows.create",
		Succeeded: false,
		Error:     "resource gone",
		Timestamp: "2025-02-01T00:00:00Z",
	}

	if err := publisher.PublishInvoked(context.Background(), event); err != nil {
		t.Fatalf("events:comms_publisher_integration_test - PublishInvoked failed: %v", err)
	}
	nc.Flush()

	select {
	case got := <-received:
		if got.Key != "windows.create" {
			t.Errorf("events:comms_publisher_integration_test - Key = %q, want %q", got.Key, "windows.create")
		}
		if got.Error != "resource gone" {
			t.Errorf("events:comms_publisher_integration_test - Error = %q, want %q", got.Error, "resource gone")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("events:comms_publisher_integration_test - timeout waiting for global event")
	}
}
