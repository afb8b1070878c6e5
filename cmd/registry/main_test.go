package main

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	commsserver "github.com/nats-io/nats-server/v2/server"
	comms "github.com/nats-io/nats.go"

	"github.com/morezero/command-registry/pkg/action"
	"github.com/morezero/command-registry/pkg/bootstrap"
	"github.com/morezero/command-registry/pkg/commands"
	"github.com/morezero/command-registry/pkg/commsutil"
	"github.com/morezero/command-registry/pkg/dispatcher"
	"github.com/morezero/command-registry/pkg/host"
	"github.com/morezero/command-registry/pkg/host/memhost"
)

const mainTestPrefix = "cmd/registry:main_test"

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"serve", "migrate", "clear", "ensure-db", "invoke", "query", "keys", "mcp"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd == root {
			t.Errorf("%s - missing subcommand %q", mainTestPrefix, name)
		}
	}
	for _, sub := range []string{"up", "down", "status"} {
		if cmd, _, err := root.Find([]string{"migrate", sub}); err != nil || cmd.Name() != sub {
			t.Errorf("%s - missing migrate %s", mainTestPrefix, sub)
		}
	}
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		in      []string
		want    action.Args
		wantErr bool
	}{
		{"none", nil, action.Args{}, false},
		{"pairs", []string{"shift=1", "resource=7"}, action.Args{"shift": "1", "resource": "7"}, false},
		{"value with equals and spaces", []string{"shift=<length> - 1"}, action.Args{"shift": "<length> - 1"}, false},
		{"empty value", []string{"shift="}, action.Args{"shift": ""}, false},
		{"missing equals", []string{"shift"}, nil, true},
		{"missing name", []string{"=1"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseArgs(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("%s - expected error", mainTestPrefix)
				}
				return
			}
			if err != nil {
				t.Fatalf("%s - unexpected error: %v", mainTestPrefix, err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("%s - got %v, want %v", mainTestPrefix, got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s - %s = %q, want %q", mainTestPrefix, k, got[k], v)
				}
			}
		})
	}
}

func TestLinePrompter(t *testing.T) {
	presets := []action.Preset{{ID: "12", Name: "Docs"}, {ID: "15", Name: "Mail"}}

	tests := []struct {
		name  string
		info  action.ArgumentRequestInfo
		input string
		want  string
	}{
		{"preset by position", action.ArgumentRequestInfo{Type: action.TypeString, Presets: presets}, "2\n", "15"},
		{"out of range is literal", action.ArgumentRequestInfo{Presets: presets}, "9\n", "9"},
		{"freeform keeps numbers", action.ArgumentRequestInfo{Type: action.TypeNumber, Freeform: true, Presets: presets}, "1\n", "1"},
		{"expression", action.ArgumentRequestInfo{Freeform: true}, "<length> - 1\n", "<length> - 1"},
		{"no trailing newline", action.ArgumentRequestInfo{}, "3", "3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := newLinePrompter(strings.NewReader(tt.input), &out)
			got, err := p.Prompt(context.Background(), action.ArgumentRequest{Param: "resource", Info: tt.info})
			if err != nil {
				t.Fatalf("%s - unexpected error: %v", mainTestPrefix, err)
			}
			if got != tt.want {
				t.Errorf("%s - got %q, want %q", mainTestPrefix, got, tt.want)
			}
			if !strings.HasPrefix(out.String(), "resource") {
				t.Errorf("%s - prompt = %q", mainTestPrefix, out.String())
			}
		})
	}
}

func TestLinePrompter_EOF(t *testing.T) {
	p := newLinePrompter(strings.NewReader(""), io.Discard)
	if _, err := p.Prompt(context.Background(), action.ArgumentRequest{Param: "shift"}); err == nil {
		t.Errorf("%s - expected EOF error", mainTestPrefix)
	}
}

// startRegistry serves a dispatcher over an in-memory host on an embedded
// COMMS server and points the CLI environment at it.
func startRegistry(t *testing.T) host.Operations {
	t.Helper()
	ns, err := commsserver.NewServer(&commsserver.Options{Host: "127.0.0.1", Port: -1, NoLog: true, NoSigs: true})
	if err != nil {
		t.Fatalf("%s - COMMS server: %v", mainTestPrefix, err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		t.Fatalf("%s - COMMS server failed to start", mainTestPrefix)
	}
	t.Cleanup(ns.Shutdown)

	nc, err := comms.Connect(ns.ClientURL())
	if err != nil {
		t.Fatalf("%s - connect: %v", mainTestPrefix, err)
	}
	t.Cleanup(nc.Close)

	ops := memhost.NewOperations()
	for _, title := range []string{"A", "B", "C"} {
		if _, err := ops.Create(context.Background(), host.CreateOptions{Title: title}); err != nil {
			t.Fatalf("%s - seed: %v", mainTestPrefix, err)
		}
	}
	reg, err := action.NewRegistry(action.NewRegistryParams{Root: commands.Build(ops, commands.Options{})})
	if err != nil {
		t.Fatalf("%s - registry: %v", mainTestPrefix, err)
	}
	resolved, err := bootstrap.CreateResolvedBootstrap(bootstrap.GetDefaultBootstrapConfig())
	if err != nil {
		t.Fatalf("%s - bootstrap: %v", mainTestPrefix, err)
	}
	disp := dispatcher.NewDispatcher(dispatcher.NewDispatcherParams{Registry: reg, Bootstrap: resolved})

	const subject = "cmd.cli.registry.v1"
	if _, err := nc.Subscribe(subject, func(msg *comms.Msg) {
		var req dispatcher.RegistryRequest
		if err := commsutil.DecodePayload(msg.Data, &req); err == nil {
			_ = commsutil.RespondPayload(msg, disp.Dispatch(context.Background(), &req))
		}
	}); err != nil {
		t.Fatalf("%s - subscribe: %v", mainTestPrefix, err)
	}
	if err := nc.Flush(); err != nil {
		t.Fatalf("%s - flush: %v", mainTestPrefix, err)
	}

	t.Setenv("COMMS_URL", ns.ClientURL())
	t.Setenv("REGISTRY_SUBJECT", subject)
	t.Setenv("REGISTRY_REQUEST_TIMEOUT", "5s")
	return ops
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestKeysCommand(t *testing.T) {
	startRegistry(t)
	out, err := runCLI(t, "", "keys")
	if err != nil {
		t.Fatalf("%s - keys: %v", mainTestPrefix, err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 6 || lines[0] != "tabs.activate.highlighted" {
		t.Errorf("%s - keys output = %q", mainTestPrefix, out)
	}
}

func TestQueryCommand(t *testing.T) {
	startRegistry(t)
	out, err := runCLI(t, "", "query", "windows")
	if err != nil {
		t.Fatalf("%s - query: %v", mainTestPrefix, err)
	}
	if !strings.Contains(out, `"isInvocable": true`) {
		t.Errorf("%s - query output = %s", mainTestPrefix, out)
	}

	if _, err := runCLI(t, "", "query", "--ver", "^3"); err == nil {
		t.Errorf("%s - expected version mismatch", mainTestPrefix)
	}
}

func TestInvokeCommand_Prompts(t *testing.T) {
	ops := startRegistry(t)
	out, err := runCLI(t, "1\n", "invoke", "tabs.activate.shift")
	if err != nil {
		t.Fatalf("%s - invoke: %v", mainTestPrefix, err)
	}
	if !strings.Contains(out, "shift (number)") || !strings.Contains(out, "tabs.activate.shift: executed") {
		t.Errorf("%s - invoke output = %q", mainTestPrefix, out)
	}

	active, err := ops.Query(context.Background(), host.Filter{Active: host.Bool(true)})
	if err != nil || len(active) != 1 || active[0].Title != "A" {
		t.Errorf("%s - active = %+v, %v", mainTestPrefix, active, err)
	}
}

func TestInvokeCommand_ArgsSkipPrompt(t *testing.T) {
	startRegistry(t)
	out, err := runCLI(t, "", "invoke", "mark", "shift=-1")
	if err != nil {
		t.Fatalf("%s - invoke: %v", mainTestPrefix, err)
	}
	if strings.Contains(out, "> ") || !strings.Contains(out, "mark: executed") {
		t.Errorf("%s - invoke output = %q", mainTestPrefix, out)
	}
}

func TestInvokeCommand_BadArg(t *testing.T) {
	if _, err := runCLI(t, "", "invoke", "mark", "shift"); err == nil {
		t.Errorf("%s - expected error for malformed argument", mainTestPrefix)
	}
}
