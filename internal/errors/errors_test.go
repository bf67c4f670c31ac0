package errors

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "computation failure",
			code:    "E101",
			wantMsg: "Computation failed",
			wantCat: CategoryReactive,
		},
		{
			name:    "resource failure",
			code:    "E201",
			wantMsg: "Resource fetch failed",
			wantCat: CategoryResource,
		},
		{
			name:    "config failure",
			code:    "E401",
			wantMsg: "Invalid configuration file",
			wantCat: CategoryConfig,
		},
		{
			name:    "unknown error code",
			code:    "E999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestNewCopiesSuggestion(t *testing.T) {
	if got := New("E703").Suggestion; got == "" {
		t.Error("E703 should carry its registered suggestion")
	}
	if got := New("E101").Suggestion; got != "" {
		t.Errorf("E101 Suggestion = %q, want empty", got)
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CategoryCLI, "unknown flag %q", "--fast")
	if err.Message != `unknown flag "--fast"` {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Code != "" {
		t.Errorf("Code = %q, want empty", err.Code)
	}
	if err.Error() != `unknown flag "--fast"` {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestWrapAndUnwrap(t *testing.T) {
	cause := stderrors.New("boom")
	err := New("E101").Wrap(cause)

	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if got := err.Error(); got != "E101: Computation failed: boom" {
		t.Errorf("Error() = %q", got)
	}
	if !stderrors.Is(err, New("E101")) {
		t.Error("errors.Is should match on code")
	}
	if stderrors.Is(err, New("E102")) {
		t.Error("errors.Is should not match a different code")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "E101") != nil {
		t.Error("FromError(nil) should be nil")
	}

	original := New("E402")
	if FromError(original, "E101") != original {
		t.Error("FromError should return an existing CoreError unchanged")
	}

	wrapped := FromError(stderrors.New("eof"), "E401")
	if wrapped.Code != "E401" || wrapped.Wrapped == nil {
		t.Errorf("FromError = %+v", wrapped)
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New("E102").
		WithDetailf("flush executed %d computations", 10001).
		WithSuggestion("Break the cycle with Untracked").
		Wrap(stderrors.New("limit 10000"))

	out := err.Format()
	for _, want := range []string{
		"ERROR E102: Runaway update",
		"flush executed 10001 computations",
		"Caused by: limit 10000",
		"Hint: Break the cycle with Untracked",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q:\n%s", want, out)
		}
	}
}

func TestFormatJSON(t *testing.T) {
	err := New("E201").Wrap(stderrors.New("timeout"))

	var decoded map[string]string
	if jerr := json.Unmarshal([]byte(err.FormatJSON()), &decoded); jerr != nil {
		t.Fatalf("invalid JSON: %v", jerr)
	}
	if decoded["code"] != "E201" {
		t.Errorf("code = %q", decoded["code"])
	}
	if decoded["category"] != string(CategoryResource) {
		t.Errorf("category = %q", decoded["category"])
	}
	if decoded["cause"] != "timeout" {
		t.Errorf("cause = %q", decoded["cause"])
	}
}

func TestPrintError(t *testing.T) {
	DisableColors()
	defer EnableColors()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"coded", New("E601").WithDetail("diff takes 2 arguments, got 1"), "ERROR E601: Invalid arguments"},
		{"wrapped coded", fmt.Errorf("serve: %w", New("E503")), "ERROR E503: Listen failed"},
		{"plain", stderrors.New("disk full"), "ERROR: disk full"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			PrintError(&buf, tt.err)
			if !strings.HasPrefix(buf.String(), tt.want) {
				t.Errorf("PrintError = %q, want prefix %q", buf.String(), tt.want)
			}
		})
	}
}

func TestPrintErrorJSON(t *testing.T) {
	tests := []struct {
		err      error
		wantCode string
		wantMsg  string
	}{
		{fmt.Errorf("load: %w", New("E401")), "E401", "Invalid configuration file"},
		{stderrors.New("disk full"), "", "disk full"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		PrintErrorJSON(&buf, tt.err)
		if !strings.HasSuffix(buf.String(), "\n") {
			t.Errorf("output %q not newline terminated", buf.String())
		}
		var decoded map[string]string
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON %q: %v", buf.String(), err)
		}
		if decoded["code"] != tt.wantCode || decoded["message"] != tt.wantMsg {
			t.Errorf("decoded = %v, want code %q message %q", decoded, tt.wantCode, tt.wantMsg)
		}
	}
}

func TestRegistry(t *testing.T) {
	codes := GetAllCodes()
	if len(codes) == 0 {
		t.Fatal("registry is empty")
	}
	for i := 1; i < len(codes); i++ {
		if codes[i-1] >= codes[i] {
			t.Fatalf("codes not sorted: %v", codes)
		}
	}

	Register("E998", ErrorTemplate{Category: CategoryCLI, Message: "Custom"})
	if tmpl, ok := GetTemplate("E998"); !ok || tmpl.Message != "Custom" {
		t.Errorf("GetTemplate(E998) = %+v, %v", tmpl, ok)
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("one two three four five six seven", 10)
	for _, line := range lines {
		if len(line) > 10 {
			t.Errorf("line %q exceeds width", line)
		}
	}
	if strings.Join(lines, " ") != "one two three four five six seven" {
		t.Errorf("wrapText lost words: %v", lines)
	}
}
