package jsontext

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestEscape(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "hello world", "hello world"},
		{"quote", `say "hi"`, `say \"hi\"`},
		{"backslash", `C:\tmp`, `C:\\tmp`},
		{"newline", "a\nb\n", `a\nb\n`},
		{"carriage return", "a\r\nb", `a\r\nb`},
		{"tab", "a\tb", `a\tb`},
		{"other control", "a\x01b\x1f", `a\u0001b\u001f`},
		{"utf8 passthrough", "héllo ✓", "héllo ✓"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Escape(tt.in); got != tt.want {
				t.Errorf("Escape(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestEscape_MatchesEncoder(t *testing.T) {
	inputs := []string{
		`print("hello\n")`,
		"line one\nline two\r\n\tindented",
		`back\slash "and" quotes`,
		"#include <stdio.h>\nint main() { return 0; }\n",
	}

	for _, in := range inputs {
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(in); err != nil {
			t.Fatal(err)
		}
		want := strings.TrimSuffix(buf.String(), "\n")
		if got := Quote(in); got != want {
			t.Errorf("Quote(%q) = %s, encoder = %s", in, got, want)
		}
	}
}

func TestEscape_RoundTrip(t *testing.T) {
	// Printable ASCII plus the short-form escapes.
	var b strings.Builder
	for c := byte(0x20); c < 0x7f; c++ {
		b.WriteByte(c)
	}
	b.WriteString("\"\\\n\t\r")
	in := b.String()

	var out string
	if err := json.Unmarshal([]byte(Quote(in)), &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out != in {
		t.Errorf("round trip = %q, want %q", out, in)
	}
}

func TestObject(t *testing.T) {
	got := Object("error", "rate limit exceeded", "code", "RATE_LIMITED")
	want := `{"error":"rate limit exceeded","code":"RATE_LIMITED"}`
	if got != want {
		t.Errorf("Object() = %s, want %s", got, want)
	}

	if got := Object(); got != "{}" {
		t.Errorf("Object() = %s, want {}", got)
	}
	if got := Object("dangling"); got != "{}" {
		t.Errorf("Object(dangling) = %s, want {}", got)
	}

	var m map[string]string
	if err := json.Unmarshal([]byte(Object("error", "bad \"input\"\n")), &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if m["error"] != "bad \"input\"\n" {
		t.Errorf("decoded = %q", m["error"])
	}
}
