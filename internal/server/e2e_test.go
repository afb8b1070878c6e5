package server

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	commsserver "github.com/nats-io/nats-server/v2/server"
	comms "github.com/nats-io/nats.go"

	"github.com/morezero/command-registry/internal/config"
	"github.com/morezero/command-registry/internal/metrics"
	"github.com/morezero/command-registry/pkg/action"
	"github.com/morezero/command-registry/pkg/client"
	"github.com/morezero/command-registry/pkg/dispatcher"
	"github.com/morezero/command-registry/pkg/events"
)

const e2eTestPrefix = "server:e2e_test"

// startCOMMS starts an embedded COMMS server on a random port.
func startCOMMS(t *testing.T) *commsserver.Server {
	t.Helper()
	ns, err := commsserver.NewServer(&commsserver.Options{Host: "127.0.0.1", Port: -1, NoLog: true, NoSigs: true})
	if err != nil {
		t.Fatalf("%s - failed to create COMMS server: %v", e2eTestPrefix, err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		t.Fatalf("%s - COMMS server failed to start", e2eTestPrefix)
	}
	t.Cleanup(func() {
		ns.Shutdown()
		ns.WaitForShutdown()
	})
	return ns
}

func connect(t *testing.T, ns *commsserver.Server) *comms.Conn {
	t.Helper()
	nc, err := comms.Connect(ns.ClientURL(), comms.Timeout(5*time.Second))
	if err != nil {
		t.Fatalf("%s - failed to connect: %v", e2eTestPrefix, err)
	}
	t.Cleanup(nc.Close)
	return nc
}

func TestE2E_MsgHandler(t *testing.T) {
	ns := startCOMMS(t)
	nc := connect(t, ns)
	rt, _ := testRuntime(t, 3)

	const subject = "cmd.e2e.registry.v1"
	if _, err := nc.Subscribe(subject, newMsgHandler(context.Background(), rt, 5*time.Second)); err != nil {
		t.Fatalf("%s - subscribe: %v", e2eTestPrefix, err)
	}
	if err := nc.Flush(); err != nil {
		t.Fatalf("%s - flush: %v", e2eTestPrefix, err)
	}

	t.Run("malformed request", func(t *testing.T) {
		msg, err := nc.Request(subject, []byte("{not json"), 5*time.Second)
		if err != nil {
			t.Fatalf("%s - request: %v", e2eTestPrefix, err)
		}
		var resp dispatcher.RegistryResponse
		if err := json.Unmarshal(msg.Data, &resp); err != nil {
			t.Fatalf("%s - decode: %v", e2eTestPrefix, err)
		}
		if resp.Ok || resp.Error == nil || resp.Error.Code != "INVALID_REQUEST" {
			t.Errorf("%s - response = %+v", e2eTestPrefix, resp)
		}
	})

	t.Run("unknown method keeps id", func(t *testing.T) {
		msg, err := nc.Request(subject, []byte(`{"id":"r-9","method":"discover"}`), 5*time.Second)
		if err != nil {
			t.Fatalf("%s - request: %v", e2eTestPrefix, err)
		}
		var resp dispatcher.RegistryResponse
		if err := json.Unmarshal(msg.Data, &resp); err != nil {
			t.Fatalf("%s - decode: %v", e2eTestPrefix, err)
		}
		if resp.ID != "r-9" || resp.Error == nil || resp.Error.Code != "METHOD_NOT_FOUND" {
			t.Errorf("%s - response = %+v", e2eTestPrefix, resp)
		}
	})

	t.Run("client negotiation", func(t *testing.T) {
		c := client.New(nc, client.Options{Subject: subject})
		answers := map[string]string{"shift": "-1"}
		res, err := c.Negotiate(context.Background(), "next", nil, client.PrompterFunc(
			func(_ context.Context, req action.ArgumentRequest) (string, error) {
				return answers[req.Param], nil
			}))
		if err != nil {
			t.Fatalf("%s - negotiate: %v", e2eTestPrefix, err)
		}
		if res.Outcome != action.OutcomeExecuted || res.Key != "next" {
			t.Errorf("%s - result = %+v", e2eTestPrefix, res)
		}
	})
}

func TestE2E_MsgHandlerRecoversPanic(t *testing.T) {
	ns := startCOMMS(t)
	nc := connect(t, ns)

	reg, err := action.NewRegistry(action.NewRegistryParams{Root: action.NewNode("root",
		action.WithChild("boom", action.NewNode("Boom", action.WithAction(func(context.Context, action.Args) error {
			panic("index out of range")
		}))),
	)})
	if err != nil {
		t.Fatalf("%s - registry: %v", e2eTestPrefix, err)
	}
	rt := &Runtime{
		Registry:   reg,
		Dispatcher: dispatcher.NewDispatcher(dispatcher.NewDispatcherParams{Registry: reg}),
		Metrics:    metrics.New(),
	}

	const subject = "cmd.e2e.panic.v1"
	if _, err := nc.Subscribe(subject, newMsgHandler(context.Background(), rt, 5*time.Second)); err != nil {
		t.Fatalf("%s - subscribe: %v", e2eTestPrefix, err)
	}
	if err := nc.Flush(); err != nil {
		t.Fatalf("%s - flush: %v", e2eTestPrefix, err)
	}

	request := func(t *testing.T, body string) dispatcher.RegistryResponse {
		t.Helper()
		msg, err := nc.Request(subject, []byte(body), 5*time.Second)
		if err != nil {
			t.Fatalf("%s - request: %v", e2eTestPrefix, err)
		}
		var resp dispatcher.RegistryResponse
		if err := json.Unmarshal(msg.Data, &resp); err != nil {
			t.Fatalf("%s - decode: %v", e2eTestPrefix, err)
		}
		return resp
	}

	resp := request(t, `{"id":"p-1","method":"invoke","params":{"key":"boom"}}`)
	if resp.Ok || resp.ID != "p-1" || resp.Error == nil || resp.Error.Code != "INTERNAL_ERROR" {
		t.Fatalf("%s - response = %+v", e2eTestPrefix, resp)
	}

	// The subscription keeps serving after a panic.
	resp = request(t, `{"id":"p-2","method":"keys"}`)
	if !resp.Ok || resp.ID != "p-2" {
		t.Errorf("%s - response after panic = %+v", e2eTestPrefix, resp)
	}
}

// TestE2E_Serve runs the whole server against an embedded COMMS server and
// an in-memory host, then drives it through the client.
func TestE2E_Serve(t *testing.T) {
	ns := startCOMMS(t)
	t.Setenv("REGISTRY_BOOTSTRAP_FILE", "")

	cfg := &config.Config{
		COMMSURL:           ns.ClientURL(),
		COMMSName:          "command-registry-e2e",
		RegistrySubject:    "cmd.e2e.serve.v1",
		RequestTimeout:     5 * time.Second,
		HostBackend:        config.BackendMemory,
		HTTPAddr:           "127.0.0.1:0",
		HealthCheckTimeout: time.Second,
	}

	observer := connect(t, ns)
	invoked := make(chan *events.InvokedEvent, 4)
	if _, err := observer.Subscribe("registry.invoked.>", func(msg *comms.Msg) {
		var e events.InvokedEvent
		if err := json.Unmarshal(msg.Data, &e); err == nil {
			invoked <- &e
		}
	}); err != nil {
		t.Fatalf("%s - subscribe events: %v", e2eTestPrefix, err)
	}
	if err := observer.Flush(); err != nil {
		t.Fatalf("%s - flush: %v", e2eTestPrefix, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, cfg) }()

	c := client.New(observer, client.Options{Subject: cfg.RegistrySubject, Timeout: time.Second})
	deadline := time.Now().Add(10 * time.Second)
	for {
		if _, err := c.Health(context.Background()); err == nil {
			break
		}
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("%s - server never answered health", e2eTestPrefix)
		}
		time.Sleep(50 * time.Millisecond)
	}

	res, err := c.Invoke(context.Background(), "windows.create", nil)
	if err != nil || !res.Executed() {
		t.Fatalf("%s - invoke = %+v, %v", e2eTestPrefix, res, err)
	}

	select {
	case e := <-invoked:
		if e.Key != "windows.create" || !e.Succeeded {
			t.Errorf("%s - event = %+v", e2eTestPrefix, e)
		}
	case <-time.After(5 * time.Second):
		t.Errorf("%s - no invoked event received", e2eTestPrefix)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("%s - Serve returned %v", e2eTestPrefix, err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("%s - Serve did not stop", e2eTestPrefix)
	}
}
