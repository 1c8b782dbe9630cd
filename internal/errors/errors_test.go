package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	t.Run("without cause", func(t *testing.T) {
		err := New(SymbolNotFound, "no symbol named frobnicate")
		got := err.Error()
		if !strings.Contains(got, "SYMBOL_NOT_FOUND") {
			t.Errorf("Error() = %q, want code in message", got)
		}
		if !strings.Contains(got, "frobnicate") {
			t.Errorf("Error() = %q, want message text", got)
		}
	})

	t.Run("with cause", func(t *testing.T) {
		cause := stderrors.New("disk exploded")
		err := Wrap(FileUnreadable, "reading main.py", cause)
		got := err.Error()
		if !strings.Contains(got, "disk exploded") {
			t.Errorf("Error() = %q, want cause included", got)
		}
	})
}

func TestNewf(t *testing.T) {
	err := Newf(RuleNotFound, "no rule with ID %q", "BOGUS")
	if !strings.Contains(err.Error(), `"BOGUS"`) {
		t.Errorf("Newf message = %q", err.Error())
	}
	if err.Code != RuleNotFound {
		t.Errorf("Code = %v, want RuleNotFound", err.Code)
	}
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("root cause")
	err := Wrap(Internal, "something broke", cause)

	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}

	wrapped := fmt.Errorf("outer: %w", err)
	var e *Error
	if !stderrors.As(wrapped, &e) {
		t.Fatal("errors.As should find *Error through wrapping")
	}
	if e.Code != Internal {
		t.Errorf("Code = %v, want Internal", e.Code)
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"direct", New(QueryInvalid, "bad sql"), QueryInvalid},
		{"wrapped", fmt.Errorf("ctx: %w", New(ParseFailed, "oops")), ParseFailed},
		{"plain error", stderrors.New("plain"), Internal},
		{"formatted plain", fmt.Errorf("no code here"), Internal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsNotFound(t *testing.T) {
	if !IsNotFound(New(SymbolNotFound, "x")) {
		t.Error("SymbolNotFound should be not-found")
	}
	if !IsNotFound(New(RuleNotFound, "x")) {
		t.Error("RuleNotFound should be not-found")
	}
	if !IsNotFound(New(FileNotIndexed, "x")) {
		t.Error("FileNotIndexed should be not-found")
	}
	if IsNotFound(New(Internal, "x")) {
		t.Error("Internal should not be not-found")
	}
	if IsNotFound(stderrors.New("plain")) {
		t.Error("plain errors should not be not-found")
	}
}

func TestWithDetails(t *testing.T) {
	err := New(InvalidInput, "bad argument").WithDetails(map[string]string{"field": "kind"})
	if err.Details == nil {
		t.Fatal("Details should be set")
	}
}
