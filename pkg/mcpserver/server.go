// Package mcpserver exposes an in-process command registry as MCP tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/morezero/command-registry/pkg/action"
	"github.com/morezero/command-registry/pkg/bootstrap"
	"github.com/morezero/command-registry/pkg/semver"
)

const logPrefix = "mcpserver:server"

// TreeURI is the resource holding the full query view.
const TreeURI = "registry://tree"

// InvokeInput are the arguments of the invoke tool.
type InvokeInput struct {
	Key  string            `json:"key" jsonschema_description:"Dotted command key or alias"`
	Args map[string]string `json:"args,omitempty" jsonschema_description:"Arguments collected so far"`
}

// QueryInput are the arguments of the query tool.
type QueryInput struct {
	Key string `json:"key,omitempty" jsonschema_description:"Subtree to describe; empty for the whole tree"`
	Ver string `json:"ver,omitempty" jsonschema_description:"Semver constraint on the protocol version"`
}

// KeysOutput is the result of the keys tool.
type KeysOutput struct {
	Keys []string `json:"keys" jsonschema_description:"Invocable command keys"`
}

// Server wraps a Registry and exposes it as an MCP server.
type Server struct {
	registry  *action.Registry
	bootstrap *bootstrap.ResolvedBootstrap
	mcpServer *server.MCPServer
}

// NewServerParams holds parameters for NewServer.
type NewServerParams struct {
	Registry  *action.Registry
	Bootstrap *bootstrap.ResolvedBootstrap
}

// NewServer creates the MCP server and registers its tools and resources.
func NewServer(params NewServerParams) *Server {
	s := &Server{
		registry:  params.Registry,
		bootstrap: params.Bootstrap,
		mcpServer: server.NewMCPServer(params.Bootstrap.Name(), params.Bootstrap.ProtocolVersion(),
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves on stdin and stdout until the input closes.
func (s *Server) ServeStdio() error {
	slog.Info(fmt.Sprintf("%s - Serving MCP on stdio", logPrefix))
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	invokeTool := mcp.NewTool("invoke",
		mcp.WithDescription("Run one invocation round. A pending outcome lists the arguments still needed; call again with them added to args."),
		mcp.WithString("key", mcp.Required(), mcp.Description("Dotted command key or alias, e.g. tabs.activate.shift")),
		mcp.WithObject("args", mcp.Description("Arguments collected so far, all values as strings")),
		mcp.WithOutputSchema[action.Result](),
	)
	s.mcpServer.AddTool(invokeTool, mcp.NewStructuredToolHandler(s.handleInvoke))

	queryTool := mcp.NewTool("query",
		mcp.WithDescription("Describe the command tree or the subtree at key."),
		mcp.WithString("key", mcp.Description("Subtree to describe (optional)")),
		mcp.WithString("ver", mcp.Description("Semver constraint on the protocol version (optional)")),
	)
	s.mcpServer.AddTool(queryTool, mcp.NewStructuredToolHandler(s.handleQuery))

	keysTool := mcp.NewTool("keys",
		mcp.WithDescription("List every invocable command key."),
		mcp.WithOutputSchema[KeysOutput](),
	)
	s.mcpServer.AddTool(keysTool, mcp.NewStructuredToolHandler(s.handleKeys))
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(TreeURI, "Command tree",
		mcp.WithResourceDescription("Query view of every command"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		text, err := s.treeJSON()
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: TreeURI, MIMEType: "application/json", Text: text},
		}, nil
	})
}

func (s *Server) resolveAlias(key string) string {
	if s.bootstrap == nil {
		return key
	}
	return s.bootstrap.ResolveAlias(key)
}

func (s *Server) handleInvoke(ctx context.Context, _ mcp.CallToolRequest, in InvokeInput) (action.Result, error) {
	result, err := s.registry.Invoke(ctx, s.resolveAlias(in.Key), in.Args)
	if err != nil {
		return action.Result{}, err
	}
	result.Key = in.Key
	return *result, nil
}

func (s *Server) handleQuery(_ context.Context, _ mcp.CallToolRequest, in QueryInput) (action.QueryNode, error) {
	if in.Ver != "" && s.bootstrap != nil {
		if err := semver.CheckConstraint(s.bootstrap.ProtocolVersion(), in.Ver); err != nil {
			return action.QueryNode{}, err
		}
	}
	key := in.Key
	if key != "" {
		key = s.resolveAlias(key)
	}
	node, err := s.registry.Describe(key)
	if err != nil {
		return action.QueryNode{}, err
	}
	return *node, nil
}

func (s *Server) handleKeys(context.Context, mcp.CallToolRequest, struct{}) (KeysOutput, error) {
	return KeysOutput{Keys: s.registry.InvocableKeys()}, nil
}

func (s *Server) treeJSON() (string, error) {
	node, err := s.registry.Describe("")
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(node)
	if err != nil {
		return "", fmt.Errorf("%s - encode tree: %w", logPrefix, err)
	}
	return string(data), nil
}
