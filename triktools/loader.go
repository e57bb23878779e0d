package triktools

import (
	"context"

	"github.com/effective-security/xlog"
	"github.com/molefas/trikbridge/hubclient"
	"github.com/molefas/trikbridge/schema"
	"github.com/molefas/trikbridge/tools"
)

// ToolSchema records how a local tool name maps back to the wire.
type ToolSchema struct {
	OriginalName string
	Description  string
}

// Catalog is the set of tools bound from one load of the server's tool
// list. Groups holds the ids of the triks the tools came from, in
// server order. All tools share one session map.
type Catalog struct {
	Tools    []tools.ITool
	Schemas  map[string]ToolSchema
	Groups   []string
	Sessions *Sessions
}

// Load fetches the server's published tool definitions and binds each
// one as a locally callable tool. The tool list and the trik listing
// are fetched independently; a failed tool fetch degrades to an empty
// catalog so the agent stays usable for plain conversation, a failed
// trik fetch leaves the tools bound with zero groups. A tool whose
// schema does not parse is still bound, just without local argument
// validation.
func Load(ctx context.Context, client *hubclient.Client, onPassthrough PassthroughFunc) *Catalog {
	cat := &Catalog{
		Schemas:  make(map[string]ToolSchema),
		Sessions: NewSessions(),
	}

	defs, err := client.GetTools(ctx)
	if err != nil {
		logger.ContextKV(ctx, xlog.ERROR,
			"status", "tool_load_failed",
			"err", err.Error(),
		)
		return cat
	}

	triks, err := client.GetTriks(ctx)
	if err != nil {
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "trik_load_failed",
			"err", err.Error(),
		)
	}
	for _, trik := range triks {
		cat.Groups = append(cat.Groups, trik.ID)
	}

	for _, def := range defs {
		js, perr := schema.Parse(def.InputSchema)
		var argSpec *schema.ArgSpec
		if perr != nil {
			logger.ContextKV(ctx, xlog.WARNING,
				"status", "schema_parse_failed",
				"tool", def.Name,
				"err", perr.Error(),
			)
			js = nil
		} else {
			argSpec = schema.FromJSONSchema(js)
		}

		tool := NewTrikTool(client, def.Name, def.Description, js, argSpec, cat.Sessions, onPassthrough)
		cat.Tools = append(cat.Tools, tool)
		cat.Schemas[tool.Name()] = ToolSchema{
			OriginalName: def.Name,
			Description:  def.Description,
		}
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "tools_loaded",
		"count", len(cat.Tools),
		"groups", len(cat.Groups),
	)
	return cat
}
