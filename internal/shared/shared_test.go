package shared

import (
	"bytes"
	"strings"
	"testing"
)

func TestGenerateState(t *testing.T) {
	t.Run("length and alphabet", func(t *testing.T) {
		state, err := GenerateState()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(state) != StateLength {
			t.Errorf("expected state length %d, got %d", StateLength, len(state))
		}
		for _, r := range state {
			if !strings.ContainsRune(stateAlphabet, r) {
				t.Errorf("unexpected character %q in state %q", r, state)
			}
		}
	})

	t.Run("unique", func(t *testing.T) {
		seen := map[string]bool{}
		for range 50 {
			state, err := GenerateState()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if seen[state] {
				t.Fatalf("duplicate state %q", state)
			}
			seen[state] = true
		}
	})
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := WithLogger(NewLogger(&buf), "component", "test")
	logger.Info("hello")

	out := buf.String()
	if !strings.Contains(out, "hello") {
		t.Errorf("expected log output to contain message, got %q", out)
	}
	if !strings.Contains(out, "component=test") {
		t.Errorf("expected log output to contain context, got %q", out)
	}
}

func TestGenerateID(t *testing.T) {
	a, b := GenerateID(), GenerateID()
	if a == b {
		t.Error("expected distinct IDs")
	}
	if len(a) != 36 {
		t.Errorf("expected UUID string of length 36, got %d", len(a))
	}
}

func TestBrowserCommand(t *testing.T) {
	orig := getRuntime
	defer func() { getRuntime = orig }()

	t.Run("BROWSER overrides platform", func(t *testing.T) {
		t.Setenv("BROWSER", "my-browser")
		cmd, err := browserCommand("https://open.spotify.com/playlist/1")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cmd.Args[0] != "my-browser" || cmd.Args[1] != "https://open.spotify.com/playlist/1" {
			t.Errorf("unexpected args %v", cmd.Args)
		}
	})

	tests := map[string]string{
		"darwin":  "open",
		"linux":   "xdg-open",
		"windows": "rundll32",
	}
	for goos, want := range tests {
		t.Run(goos, func(t *testing.T) {
			t.Setenv("BROWSER", "")
			getRuntime = func() string { return goos }
			cmd, err := browserCommand("u")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if cmd.Args[0] != want {
				t.Errorf("expected %s, got %v", want, cmd.Args)
			}
		})
	}

	t.Run("unsupported platform", func(t *testing.T) {
		t.Setenv("BROWSER", "")
		getRuntime = func() string { return "plan9" }
		if err := OpenBrowser("u"); err == nil || !strings.Contains(err.Error(), "unsupported platform") {
			t.Errorf("expected unsupported platform error, got %v", err)
		}
	})
}
