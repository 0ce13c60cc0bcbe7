package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	moodledger "github.com/unowned-ai/moodledger/pkg"
	"github.com/unowned-ai/moodledger/pkg/logger"
	"github.com/unowned-ai/moodledger/pkg/moods"
)

type MoodMCPServer struct {
	mcpServer *server.MCPServer
	ledger    *moods.Ledger
	log       *logger.Logger
}

// NewMoodMCPServer builds an MCP server with every mood tool registered.
// The caller owns the ledger's store and closes it.
func NewMoodMCPServer(ledger *moods.Ledger, log *logger.Logger) *MoodMCPServer {
	if log == nil {
		log = logger.NewNop()
	}

	s := server.NewMCPServer(
		"Mood Ledger MCP Server",
		moodledger.Version,
		server.WithToolCapabilities(false),
		server.WithLogging(),
		server.WithRecovery(),
	)

	tools := NewTools(ledger, log.With("service", "MoodMCP"))
	RegisterPingTool(s)
	tools.Register(s)

	return &MoodMCPServer{
		mcpServer: s,
		ledger:    ledger,
		log:       log,
	}
}

// Start runs the stdio event loop until stdin closes.
func (s *MoodMCPServer) Start() error {
	s.log.Info("mcp server listening on stdio")
	return server.ServeStdio(s.mcpServer)
}

// MCPRawServer exposes the raw mcp-go server (useful for additional configuration).
func (s *MoodMCPServer) MCPRawServer() *server.MCPServer {
	return s.mcpServer
}
