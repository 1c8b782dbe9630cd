package mcp

import "codeindex/internal/version"

// protocolVersion is the MCP revision this server speaks.
const protocolVersion = "2024-11-05"

// ServerCapabilities advertises what the server supports.
type ServerCapabilities struct {
	Tools ToolsCapability `json:"tools"`
}

// ToolsCapability marshals to an empty object; the tool list is static.
type ToolsCapability struct{}

// ServerInfo identifies the server to the client.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeResult is the initialize response payload.
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      ServerInfo         `json:"serverInfo"`
}

func (s *Server) handleInitialize(params map[string]interface{}) *InitializeResult {
	s.log.Info("MCP client connecting", map[string]interface{}{
		"clientInfo": params["clientInfo"],
	})

	return &InitializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities:    ServerCapabilities{Tools: ToolsCapability{}},
		ServerInfo: ServerInfo{
			Name:    "codeindex",
			Version: version.Version,
		},
	}
}
