package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mvp-joe/ruumba/internal/erb"
)

type handlerFunc = server.ToolHandlerFunc

// ExtractResponse is the result of ruumba_extract.
type ExtractResponse struct {
	Projection string `json:"projection"`
	Marker     string `json:"marker,omitempty"`
	Digest     string `json:"digest"`
	Tags       int    `json:"tags"`
}

// RegionInfo describes one tag of a template.
type RegionInfo struct {
	Index   int          `json:"index"`
	Start   int          `json:"start"`
	End     int          `json:"end"`
	Begin   erb.Position `json:"begin"`
	Code    string       `json:"code"`
	Helper  bool         `json:"helper,omitempty"`
	Comment bool         `json:"comment,omitempty"`
	Token   string       `json:"token,omitempty"`
}

// RegionsResponse is the result of ruumba_regions.
type RegionsResponse struct {
	Regions []RegionInfo `json:"regions"`
	Total   int          `json:"total"`
}

// ReplaceResponse is the result of ruumba_replace.
type ReplaceResponse struct {
	Outcome  string `json:"outcome"`
	Template string `json:"template"`
}

// AddExtractTool registers ruumba_extract.
func AddExtractTool(s *server.MCPServer) {
	tool := mcp.NewTool(
		"ruumba_extract",
		mcp.WithDescription(`Project the Ruby code embedded in an ERB template.

Without a marker the projection is direct: every piece of code keeps its line
and column, everything else is blanked. With a marker seed each tag is framed
by numbered marker lines so a corrected projection can be merged back with
ruumba_replace.`),
		mcp.WithString("template",
			mcp.Required(),
			mcp.Description("ERB template text")),
		mcp.WithString("marker",
			mcp.Description("Marker seed; empty for a direct projection")),
		mcp.WithBoolean("trim",
			mcp.Description("Strip trailing blanks from each line of a direct projection (default: true)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createExtractHandler())
}

func createExtractHandler() handlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, err := arguments(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		text, err := parseStringArg(argsMap, "template", true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		seed, err := parseStringArg(argsMap, "marker", false)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var marker erb.Marker
		if seed != "" {
			marker = erb.NewMarker(seed)
		}

		projection := erb.Extract(text, marker)
		if marker == "" && parseBoolArg(argsMap, "trim", true) {
			projection = erb.TrimTrailingSpace(projection)
		}

		return jsonResult(&ExtractResponse{
			Projection: projection,
			Marker:     string(marker),
			Digest:     erb.Digest(projection),
			Tags:       len(erb.Scan(text)),
		})
	}
}

// AddRegionsTool registers ruumba_regions.
func AddRegionsTool(s *server.MCPServer) {
	tool := mcp.NewTool(
		"ruumba_regions",
		mcp.WithDescription("List the embedded code regions of an ERB template with byte offsets, 1-based line and column, and tag kind."),
		mcp.WithString("template",
			mcp.Required(),
			mcp.Description("ERB template text")),
		mcp.WithString("marker",
			mcp.Description("Marker seed; when set each region reports its marker token")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createRegionsHandler())
}

func createRegionsHandler() handlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, err := arguments(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		text, err := parseStringArg(argsMap, "template", true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		seed, err := parseStringArg(argsMap, "marker", false)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		regions := erb.Scan(text)
		infos := make([]RegionInfo, 0, len(regions))
		for i, region := range regions {
			info := RegionInfo{
				Index:   i + 1,
				Start:   region.Start,
				End:     region.End,
				Begin:   erb.PositionOf(text, region.Start),
				Code:    region.Content(text),
				Helper:  region.Helper,
				Comment: region.IsComment(text),
			}
			if seed != "" {
				info.Token = erb.NewMarker(seed).Token(i + 1)
			}
			infos = append(infos, info)
		}

		return jsonResult(&RegionsResponse{Regions: infos, Total: len(infos)})
	}
}

// AddReplaceTool registers ruumba_replace.
func AddReplaceTool(s *server.MCPServer) {
	tool := mcp.NewTool(
		"ruumba_replace",
		mcp.WithDescription(`Merge a corrected marked projection back into its ERB template.

The marker seed must be the one given to ruumba_extract. When digest is set and
the corrected projection still has that digest, the template is returned as is.
If any tag lost its marker lines the merge is refused.`),
		mcp.WithString("template",
			mcp.Required(),
			mcp.Description("Original ERB template text")),
		mcp.WithString("corrected",
			mcp.Required(),
			mcp.Description("Corrected marked projection")),
		mcp.WithString("marker",
			mcp.Required(),
			mcp.Description("Marker seed used for extraction")),
		mcp.WithString("digest",
			mcp.Description("Digest of the projection before correction")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createReplaceHandler())
}

func createReplaceHandler() handlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, err := arguments(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var text, corrected, seed, digest string
		for _, arg := range []struct {
			key      string
			dst      *string
			required bool
		}{
			{"template", &text, true},
			{"corrected", &corrected, true},
			{"marker", &seed, true},
			{"digest", &digest, false},
		} {
			if *arg.dst, err = parseStringArg(argsMap, arg.key, arg.required); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
		}
		if seed == "" {
			return mcp.NewToolResultError("marker cannot be empty"), nil
		}

		marker := erb.NewMarker(seed)
		var out string
		outcome := erb.Corrected
		if digest != "" {
			out, outcome, err = erb.Correct(text, corrected, marker, digest)
		} else {
			out, err = erb.Replace(text, corrected, marker)
		}
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("replace failed: %v", err)), nil
		}

		return jsonResult(&ReplaceResponse{Outcome: outcome.String(), Template: out})
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}
