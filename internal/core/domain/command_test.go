package domain

import "testing"

func TestCommandOutputCombined(t *testing.T) {
	tests := []struct {
		name     string
		out      CommandOutput
		expected string
	}{
		{name: "both streams", out: CommandOutput{Stdout: "out", Stderr: "err"}, expected: "out\nerr"},
		{name: "stdout only", out: CommandOutput{Stdout: "out"}, expected: "out"},
		{name: "stderr only", out: CommandOutput{Stderr: "err"}, expected: "err"},
		{name: "empty", out: CommandOutput{}, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.out.Combined(); got != tt.expected {
				t.Fatalf("Combined() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestCommandOutputFirstMessage(t *testing.T) {
	out := CommandOutput{Stdout: "from stdout", Stderr: "from stderr"}
	if got := out.FirstMessage("fallback"); got != "from stderr" {
		t.Fatalf("expected stderr to win, got %q", got)
	}

	out = CommandOutput{Stdout: "from stdout"}
	if got := out.FirstMessage("fallback"); got != "from stdout" {
		t.Fatalf("expected stdout, got %q", got)
	}

	out = CommandOutput{}
	if got := out.FirstMessage("fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
}
