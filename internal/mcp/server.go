// Package mcp serves the index to AI coding agents over the Model Context
// Protocol: newline-delimited JSON-RPC 2.0 on stdin/stdout, exposing the
// eight index tools via initialize, tools/list, and tools/call.
package mcp

import (
	"bufio"
	"io"
	"os"

	"github.com/google/uuid"

	"codeindex/internal/indexer"
	"codeindex/internal/logging"
	"codeindex/internal/query"
	"codeindex/internal/rules"
	"codeindex/internal/sessions"
	"codeindex/internal/storage"
	"codeindex/internal/version"
)

// toolFunc executes one tool call. A returned error becomes an isError tool
// result, not a JSON-RPC error.
type toolFunc func(args map[string]interface{}) (interface{}, error)

// Deps carries the components the tools operate on.
type Deps struct {
	DB      *storage.DB
	Indexer *indexer.Indexer
	Queries *query.Engine
	Rules   *rules.Engine
	Tracker *sessions.Tracker
	History *sessions.History
}

// Server is a single-project MCP stdio server.
type Server struct {
	stdin   io.Reader
	stdout  io.Writer
	scanner *bufio.Scanner
	log     *logging.Logger

	deps  Deps
	tools map[string]toolFunc
}

// NewServer creates a server and seeds the builtin rules so a fresh index
// answers diagnostics calls immediately.
func NewServer(deps Deps, log *logging.Logger) (*Server, error) {
	if _, err := deps.Rules.SeedBuiltins(); err != nil {
		return nil, err
	}

	s := &Server{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		log:    log,
		deps:   deps,
	}
	s.registerTools()
	return s, nil
}

// SetStdin replaces the input stream (for testing).
func (s *Server) SetStdin(r io.Reader) {
	s.stdin = r
	s.scanner = nil
}

// SetStdout replaces the output stream (for testing).
func (s *Server) SetStdout(w io.Writer) {
	s.stdout = w
}

// Serve runs the message loop until stdin closes.
func (s *Server) Serve() error {
	s.log.Info("MCP server started", map[string]interface{}{
		"version": version.Version,
	})

	for {
		msg, err := s.readMessage()
		if err != nil {
			if err == io.EOF {
				s.log.Info("MCP server shutting down", nil)
				return nil
			}
			if pe, ok := err.(*parseError); ok {
				// The id is unknowable for unparseable input; JSON-RPC
				// says to respond with a null id.
				if werr := s.writeMessage(NewErrorMessage(nil, ParseError, pe.Error())); werr != nil {
					s.log.Error("Cannot write parse error", map[string]interface{}{"error": werr.Error()})
				}
				continue
			}
			return err
		}

		response := s.handleMessage(msg)
		if response == nil {
			continue
		}
		if err := s.writeMessage(response); err != nil {
			s.log.Error("Cannot write response", map[string]interface{}{"error": err.Error()})
		}
	}
}

// handleMessage routes one message. Notifications and unroutable garbage
// return nil (no response).
func (s *Server) handleMessage(msg *Message) *Message {
	correlationID := uuid.NewString()

	if msg.IsRequest() {
		s.log.Debug("Handling request", map[string]interface{}{
			"method":         msg.Method,
			"id":             msg.ID,
			"correlation_id": correlationID,
		})
		return s.handleRequest(msg, correlationID)
	}

	if msg.IsNotification() {
		s.handleNotification(msg)
		return nil
	}

	if msg.ID != nil {
		return NewErrorMessage(msg.ID, InvalidRequest, "invalid message: not a request or notification")
	}
	return nil
}

func (s *Server) handleNotification(msg *Message) {
	switch msg.Method {
	case "notifications/initialized":
		s.log.Info("Client initialized", nil)
	default:
		s.log.Debug("Ignoring notification", map[string]interface{}{
			"method": msg.Method,
		})
	}
}
