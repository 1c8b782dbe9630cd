package mcp

import (
	"encoding/json"
	"fmt"
)

// ToolResult is the tools/call response payload. Tool failures are carried
// here with IsError set rather than as JSON-RPC errors, so clients always
// get a content block to show.
type ToolResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

// ContentBlock is one piece of tool output.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (s *Server) handleRequest(msg *Message, correlationID string) *Message {
	params, _ := msg.Params.(map[string]interface{})
	if params == nil {
		params = map[string]interface{}{}
	}

	switch msg.Method {
	case "initialize":
		return NewResultMessage(msg.ID, s.handleInitialize(params))
	case "tools/list":
		return NewResultMessage(msg.ID, map[string]interface{}{
			"tools": toolDefinitions(),
		})
	case "tools/call":
		return s.handleCallTool(msg, params, correlationID)
	default:
		return NewErrorMessage(msg.ID, MethodNotFound, fmt.Sprintf("method not found: %s", msg.Method))
	}
}

func (s *Server) handleCallTool(msg *Message, params map[string]interface{}, correlationID string) *Message {
	if _, isObject := msg.Params.(map[string]interface{}); !isObject {
		return NewErrorMessage(msg.ID, InvalidParams, "invalid params: expected object")
	}
	name, ok := params["name"].(string)
	if !ok || name == "" {
		return NewErrorMessage(msg.ID, InvalidParams, "invalid params: missing tool name")
	}
	args, ok := params["arguments"].(map[string]interface{})
	if !ok {
		args = map[string]interface{}{}
	}

	s.log.Info("Calling tool", map[string]interface{}{
		"tool":           name,
		"correlation_id": correlationID,
	})

	handler, exists := s.tools[name]
	if !exists {
		return NewResultMessage(msg.ID, errorResult(fmt.Sprintf("unknown tool: %s", name)))
	}

	result, err := handler(args)
	if err != nil {
		s.log.Warn("Tool failed", map[string]interface{}{
			"tool":           name,
			"correlation_id": correlationID,
			"error":          err.Error(),
		})
		return NewResultMessage(msg.ID, errorResult("Error: "+err.Error()))
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return NewErrorMessage(msg.ID, InternalError, fmt.Sprintf("cannot encode tool result: %v", err))
	}
	return NewResultMessage(msg.ID, &ToolResult{
		Content: []ContentBlock{{Type: "text", Text: string(data)}},
	})
}

func errorResult(text string) *ToolResult {
	return &ToolResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
		IsError: true,
	}
}
