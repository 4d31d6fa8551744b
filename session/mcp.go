package session

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/bulkvis/kit"
	"github.com/hazyhaar/bulkvis/source"
)

// RegisterMCP exposes s as MCP tools. One MCP connection drives one session.
func RegisterMCP(srv *mcp.Server, s *Session) {
	registerLoadTool(srv, s)
	registerAnnotationsTool(srv, s)
	registerContextTool(srv, s)
	registerFormatsTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	sch := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		sch["required"] = required
	}
	return sch
}

var classify = kit.WithErrorKind(source.Kind)

// --- load ---

type loadReq struct {
	Location      string   `json:"location"`
	Key           string   `json:"key"`
	States        []string `json:"states,omitempty"`
	IncludeSignal bool     `json:"include_signal,omitempty"`
}

// LoadResult describes a loaded view without the annotation rows.
type LoadResult struct {
	Location string              `json:"location"`
	Format   source.Format       `json:"format"`
	Label    string              `json:"label"`
	Points   int                 `json:"points"`
	Samples  int                 `json:"samples"`
	Start    float64             `json:"start"`
	End      float64             `json:"end"`
	Labels   []string            `json:"labels"`
	Selected []string            `json:"selected"`
	Summary  []source.LabelCount `json:"summary"`
	Signal   *source.SampleSlice `json:"signal,omitempty"`
}

// NewLoadResult summarises v, with the series when withSignal is set.
func NewLoadResult(v *View, withSignal bool) LoadResult {
	res := LoadResult{
		Location: v.Location,
		Format:   v.Format,
		Label:    v.Label,
		Points:   v.Slice.Len(),
		Samples:  len(v.Slice.Raw),
		Labels:   v.Catalog.Labels(),
		Selected: v.Selected,
		Summary:  v.Summary(),
	}
	if n := len(v.Slice.Times); n > 0 {
		res.Start, res.End = v.Slice.Times[0], v.Slice.Times[n-1]
	}
	if withSignal {
		res.Signal = &v.Slice
	}
	return res
}

func registerLoadTool(srv *mcp.Server, s *Session) {
	tool := &mcp.Tool{
		Name:        "bulkvis_load",
		Description: "Load a signal slice from a fast5 or pod5 recording (local path, s3:// or https://). key is CHANNEL:START-END for bulk fast5 files, a read id otherwise.",
		InputSchema: inputSchema(map[string]any{
			"location":       map[string]any{"type": "string", "description": "Recording path or URI"},
			"key":            map[string]any{"type": "string", "description": "Position (50:88360-88900) or read id"},
			"states":         map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "State labels to overlay (default: all)"},
			"include_signal": map[string]any{"type": "boolean", "description": "Return the time/value series"},
		}, []string{"location", "key"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*loadReq)
		v, err := s.Load(ctx, r.Location, r.Key)
		if err != nil {
			return nil, err
		}
		if r.States != nil {
			if v, err = s.Reload(ctx, r.States); err != nil {
				return nil, err
			}
		}
		return NewLoadResult(v, r.IncludeSignal), nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, kit.DecodeArgs[loadReq](), classify)
}

// --- annotations ---

type annotationsReq struct {
	States []string `json:"states,omitempty"`
}

func registerAnnotationsTool(srv *mcp.Server, s *Session) {
	tool := &mcp.Tool{
		Name:        "bulkvis_annotations",
		Description: "State annotations of the loaded window: selected markers, declared label catalog and per-label counts. states changes the selection.",
		InputSchema: inputSchema(map[string]any{
			"states": map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "New label selection"},
		}, nil),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*annotationsReq)
		v := s.View()
		if r.States != nil {
			var err error
			if v, err = s.Reload(ctx, r.States); err != nil {
				return nil, err
			}
		}
		if v == nil {
			return nil, source.ErrNoData
		}
		return NewAnnotationsResult(v), nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, kit.DecodeArgs[annotationsReq](), classify)
}

// --- context ---

func registerContextTool(srv *mcp.Server, s *Session) {
	tool := &mcp.Tool{
		Name:        "bulkvis_context",
		Description: "Run metadata (context_tags and tracking_id) of the loaded recording.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		v := s.View()
		if v == nil {
			return nil, source.ErrNoData
		}
		if v.Context == nil {
			return map[string]any{}, nil
		}
		return v.Context, nil
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode, classify)
}

// --- formats ---

func registerFormatsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "bulkvis_formats",
		Description: "List the supported recording formats and what each provides.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		return map[string]any{"formats": source.Formats()}, nil
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// AnnotationsResult is the overlay state of a view.
type AnnotationsResult struct {
	Markers  []source.AnnotationRow `json:"markers"`
	Catalog  []source.CatalogEntry  `json:"catalog"`
	Selected []string               `json:"selected"`
	Summary  []source.LabelCount    `json:"summary"`
}

// NewAnnotationsResult builds the overlay state of v.
func NewAnnotationsResult(v *View) AnnotationsResult {
	return AnnotationsResult{
		Markers:  nonNil(v.Markers()),
		Catalog:  v.Catalog.Entries(),
		Selected: nonNil(v.Selected),
		Summary:  v.Summary(),
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
