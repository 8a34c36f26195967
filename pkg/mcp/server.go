// Package mcp exposes discovery, classification and generation as MCP tools
// over stdio.
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/gnana997/propgen/pkg/generate"
	"github.com/gnana997/propgen/pkg/mcplog"
)

// Server implements the propgen MCP server.
type Server struct {
	mcpServer *server.MCPServer
	gen       *generate.Generator
	version   string
	logger    *mcplog.Logger // nil disables call logging
	log       *slog.Logger
}

// NewServer creates a server backed by gen. The generator's writer is never
// used; tools only read.
func NewServer(gen *generate.Generator, version string, logger *mcplog.Logger, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{gen: gen, version: version, logger: logger, log: log}

	opts := []server.ServerOption{
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	}
	if logger != nil {
		opts = append(opts, server.WithToolHandlerMiddleware(s.loggingMiddleware()))
	}
	s.mcpServer = server.NewMCPServer("propgen", version, opts...)

	s.mcpServer.AddTools(
		server.ServerTool{Tool: generateSchemaTool(), Handler: s.handleGenerateSchema},
		server.ServerTool{Tool: listComponentsTool(), Handler: s.handleListComponents},
		server.ServerTool{Tool: classifyTypeTool(), Handler: s.handleClassifyType},
	)
	return s
}

// ServeStdio serves on stdin/stdout until the client disconnects.
func (s *Server) ServeStdio() error {
	s.log.Info("mcp server listening on stdio", "version", s.version)
	return server.ServeStdio(s.mcpServer)
}
