package mcp

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// MaxMessageSize caps a single message at 1MB, which accommodates large
// tool responses.
const MaxMessageSize = 1024 * 1024

// parseError marks input that scanned as a line but is not valid JSON-RPC.
type parseError struct {
	cause error
}

func (e *parseError) Error() string {
	return "parse error: " + e.cause.Error()
}

// readMessage reads the next newline-delimited JSON-RPC message, skipping
// blank lines. It returns io.EOF when the input ends and *parseError for
// malformed lines.
func (s *Server) readMessage() (*Message, error) {
	if s.scanner == nil {
		s.scanner = bufio.NewScanner(s.stdin)
		s.scanner.Buffer(make([]byte, MaxMessageSize), MaxMessageSize)
	}

	for s.scanner.Scan() {
		line := bytes.TrimSpace(s.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var msg Message
		if err := json.Unmarshal(line, &msg); err != nil {
			return nil, &parseError{cause: err}
		}
		return &msg, nil
	}

	if err := s.scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading from stdin: %w", err)
	}
	return nil, io.EOF
}

// writeMessage writes one newline-delimited JSON-RPC message.
func (s *Server) writeMessage(msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("error encoding JSON-RPC message: %w", err)
	}
	if _, err := fmt.Fprintf(s.stdout, "%s\n", data); err != nil {
		return fmt.Errorf("error writing to stdout: %w", err)
	}
	return nil
}
