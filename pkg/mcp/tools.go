package mcp

import "github.com/mark3labs/mcp-go/mcp"

const (
	toolGenerateSchema = "generate_schema"
	toolListComponents = "list_components"
	toolClassifyType   = "classify_type"
)

func generateSchemaTool() mcp.Tool {
	return mcp.NewTool(toolGenerateSchema,
		mcp.WithDescription("Generate the runtime prop validator blocks for one source unit. "+
			"Returns the rendered blocks and the components they cover. Nothing is written to disk."),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path of the unit. Used for default-export names and locations; read from disk when source is omitted."),
		),
		mcp.WithString("source",
			mcp.Description("Unit source text. Overrides the file contents at path."),
		),
	)
}

func listComponentsTool() mcp.Tool {
	return mcp.NewTool(toolListComponents,
		mcp.WithDescription("List the exported components of a unit or of every matching unit under a directory, "+
			"with their classified props and the exports that were skipped."),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("A source file or a directory to scan."),
		),
		mcp.WithString("keyword",
			mcp.Description("Directory scans only: keep components whose name contains this text, case-insensitively."),
		),
	)
}

func classifyTypeTool() mcp.Tool {
	return mcp.NewTool(toolClassifyType,
		mcp.WithDescription("Classify a TypeScript type expression into a runtime-checkable prop type "+
			"and render its validator."),
		mcp.WithString("type",
			mcp.Required(),
			mcp.Description("Type expression, e.g. \"'sm' | 'lg'\" or \"string[] | null\"."),
		),
		mcp.WithString("prelude",
			mcp.Description("Declarations visible to the expression, e.g. \"interface P { a: string }\"."),
		),
	)
}
