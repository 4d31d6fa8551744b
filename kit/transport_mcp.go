// CLAUDE:SUMMARY Registers kit Endpoints as MCP tools (official go-sdk): JSON argument decoding, JSON results, classified tool errors.
package kit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCPDecodeResult holds the decoded request and an optional context enrichment.
type MCPDecodeResult struct {
	Request   any
	EnrichCtx func(context.Context) context.Context
}

// MCPOption customises RegisterMCPTool.
type MCPOption func(*mcpToolConfig)

type mcpToolConfig struct {
	classify func(error) string
}

// WithErrorKind adds a "kind" field, computed by classify, to tool errors.
func WithErrorKind(classify func(error) string) MCPOption {
	return func(c *mcpToolConfig) { c.classify = classify }
}

// RegisterMCPTool registers an Endpoint as an MCP tool on srv. decode
// extracts the typed request from req.Params.Arguments. Endpoint errors are
// returned as tool errors, never as protocol errors.
func RegisterMCPTool(srv *mcp.Server, tool *mcp.Tool, endpoint Endpoint, decode func(*mcp.CallToolRequest) (*MCPDecodeResult, error), opts ...MCPOption) {
	var cfg mcpToolConfig
	for _, o := range opts {
		o(&cfg)
	}

	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx = WithTransport(ctx, "mcp")
		decoded, err := decode(req)
		if err != nil {
			return toolError(fmt.Errorf("invalid arguments: %w", err), "parse"), nil
		}
		if decoded.EnrichCtx != nil {
			ctx = decoded.EnrichCtx(ctx)
		}

		resp, err := endpoint(ctx, decoded.Request)
		if err != nil {
			kind := ""
			if cfg.classify != nil {
				kind = cfg.classify(err)
			}
			return toolError(err, kind), nil
		}

		data, err := json.Marshal(resp)
		if err != nil {
			return toolError(fmt.Errorf("marshal: %w", err), "internal"), nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}

// DecodeArgs returns a decode function unmarshalling the tool arguments
// into a *T.
func DecodeArgs[T any]() func(*mcp.CallToolRequest) (*MCPDecodeResult, error) {
	return func(req *mcp.CallToolRequest) (*MCPDecodeResult, error) {
		var args T
		if req.Params != nil && len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return nil, err
			}
		}
		return &MCPDecodeResult{Request: &args}, nil
	}
}

func toolError(err error, kind string) *mcp.CallToolResult {
	body := map[string]string{"error": err.Error()}
	if kind != "" {
		body["kind"] = kind
	}
	data, _ := json.Marshal(body)
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
}
