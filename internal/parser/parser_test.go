package parser_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ossyrian/ipftools/internal/parser"
)

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name     string
		explicit string
		path     string
		want     parser.Format
		wantErr  bool
	}{
		{name: "extension ipf", path: "archive.ipf", want: parser.FormatIPF},
		{name: "extension ies", path: "Item.ies", want: parser.FormatIES},
		{name: "extension xac", path: "hero.XAC", want: parser.FormatXAC},
		{name: "extension xsm", path: "walk.xsm", want: parser.FormatXSM},
		{name: "explicit override wins", explicit: "ies", path: "archive.ipf", want: parser.FormatIES},
		{name: "explicit override case-insensitive", explicit: "XAC", path: "mystery", want: parser.FormatXAC},
		{name: "unknown explicit override", explicit: "wz", path: "archive.ipf", wantErr: true},
		{name: "unknown extension", path: "data.bin", wantErr: true},
		{name: "no extension", path: "data", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parser.DetectFormat(tt.explicit, tt.path)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("DetectFormat(%q, %q) succeeded unexpectedly", tt.explicit, tt.path)
				}
				return
			}
			if err != nil {
				t.Fatalf("DetectFormat(%q, %q) failed: %v", tt.explicit, tt.path, err)
			}
			if got != tt.want {
				t.Errorf("DetectFormat(%q, %q) = %v, want %v", tt.explicit, tt.path, got, tt.want)
			}
		})
	}
}

func TestRenderHexModeWithRawBytes(t *testing.T) {
	r := &parser.Result{
		Format: parser.FormatIPF,
		Value:  map[string]any{"byteCount": 3},
		Raw:    []byte("hi\n"),
	}

	var buf bytes.Buffer
	if err := parser.Render(&buf, r, "hex"); err != nil {
		t.Fatalf("Render: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "68 69 0A") {
		t.Errorf("Render(hex) = %q, want it to contain the hex bytes 68 69 0A", out)
	}
	if !strings.Contains(out, "hi") {
		t.Errorf("Render(hex) = %q, want it to contain the ASCII column", out)
	}
}

func TestRenderJSONModeWithoutRawBytes(t *testing.T) {
	r := &parser.Result{Format: parser.FormatIES, Value: map[string]any{"columns": 2}}

	var buf bytes.Buffer
	if err := parser.Render(&buf, r, "json"); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(buf.String(), "\"columns\"") {
		t.Errorf("Render(json) = %q, want JSON containing columns key", buf.String())
	}
}

func TestRenderHexModeFallsBackToJSONWithoutRaw(t *testing.T) {
	r := &parser.Result{Format: parser.FormatXAC, Value: map[string]any{"meshes": 1}}

	var buf bytes.Buffer
	if err := parser.Render(&buf, r, "hex"); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(buf.String(), "\"meshes\"") {
		t.Errorf("Render(hex without raw) = %q, want JSON fallback", buf.String())
	}
}
