package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	comms "github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/morezero/command-registry/internal/server"
	"github.com/morezero/command-registry/pkg/action"
	"github.com/morezero/command-registry/pkg/client"
	"github.com/morezero/command-registry/pkg/commsutil"
)

func newInvokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "invoke <key> [param=value...]",
		Short: "Invoke a command, prompting for missing arguments",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			preset, err := parseArgs(args[1:])
			if err != nil {
				return err
			}
			return withClient(cmd, func(ctx context.Context, c *client.Client) error {
				prompter := newLinePrompter(cmd.InOrStdin(), cmd.OutOrStdout())
				result, err := c.Negotiate(ctx, args[0], preset, prompter)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", result.Key, result.Outcome)
				return nil
			})
		},
	}
}

func newQueryCmd() *cobra.Command {
	var ver string
	query := &cobra.Command{
		Use:   "query [key]",
		Short: "Print the command tree or the subtree at key",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := ""
			if len(args) == 1 {
				key = args[0]
			}
			return withClient(cmd, func(ctx context.Context, c *client.Client) error {
				node, err := c.Query(ctx, key, ver)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(node)
			})
		},
	}
	query.Flags().StringVar(&ver, "ver", "", "semver constraint on the protocol version")
	return query
}

func newKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List invocable command keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd, func(ctx context.Context, c *client.Client) error {
				keys, err := c.Keys(ctx)
				if err != nil {
					return err
				}
				for _, k := range keys {
					fmt.Fprintln(cmd.OutOrStdout(), k)
				}
				return nil
			})
		},
	}
}

// withClient connects to COMMS_URL and runs fn with a registry client.
func withClient(cmd *cobra.Command, fn func(ctx context.Context, c *client.Client) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	nc, err := commsutil.Connect(cfg.COMMSURL, cfg.COMMSName+"-cli", comms.MaxReconnects(0))
	if err != nil {
		return err
	}
	defer nc.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	c := client.New(nc, client.Options{Subject: server.RegistrySubject(cfg), Timeout: cfg.RequestTimeout})
	return fn(ctx, c)
}

// parseArgs turns param=value pairs into Args.
func parseArgs(pairs []string) (action.Args, error) {
	out := make(action.Args, len(pairs))
	for _, p := range pairs {
		name, value, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("argument %q is not of the form param=value", p)
		}
		out[name] = value
	}
	return out, nil
}

// linePrompter reads one answer per line. Unless the parameter is freeform, a
// number matching a listed preset selects that preset's id.
type linePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newLinePrompter(in io.Reader, out io.Writer) *linePrompter {
	return &linePrompter{in: bufio.NewReader(in), out: out}
}

func (p *linePrompter) Prompt(_ context.Context, req action.ArgumentRequest) (string, error) {
	info := req.Info
	fmt.Fprintf(p.out, "%s", req.Param)
	if info.Type != "" {
		fmt.Fprintf(p.out, " (%s)", info.Type)
	}
	if info.Range != nil {
		fmt.Fprintf(p.out, " [%d..%d]", info.Range.Min, info.Range.Max)
	}
	fmt.Fprintln(p.out)
	for i, preset := range info.Presets {
		fmt.Fprintf(p.out, "  %d) %s  %s\n", i+1, preset.Name, preset.ID)
	}
	fmt.Fprint(p.out, "> ")

	line, err := p.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	answer := strings.TrimSpace(line)

	if !info.Freeform {
		if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(info.Presets) {
			return info.Presets[n-1].ID, nil
		}
	}
	return answer, nil
}
