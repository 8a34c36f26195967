package main

import (
	"log/slog"

	mcpserver "github.com/gnana997/propgen/pkg/mcp"
	"github.com/gnana997/propgen/pkg/mcplog"
)

// ServeCmd serves the MCP tools on stdio. Logs go to stderr, so stdout
// carries only the protocol.
type ServeCmd struct {
	McpLog string `help:"Append one JSON line per tool call to this file." type:"path" env:"PROPGEN_MCP_LOG"`
}

func (c *ServeCmd) Run(opts *Options, logger *slog.Logger) error {
	callLog, err := mcplog.NewLogger(c.McpLog)
	if err != nil {
		return err
	}
	defer callLog.Close()

	g, err := opts.newGenerator(logger)
	if err != nil {
		return err
	}
	defer g.Close()

	return mcpserver.NewServer(g, version, callLog, logger).ServeStdio()
}
