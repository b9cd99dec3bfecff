package session

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/energizer-project/craftlure/internal/protocol"
)

func TestParseStatusTemplate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"object", `{"version":{"name":"x","protocol":1}}`, false},
		{"empty object", `{}`, false},
		{"array", `[1,2]`, true},
		{"null", `null`, true},
		{"garbage", `{"version":`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseStatusTemplate([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestResolveStatusTemplate(t *testing.T) {
	dir := t.TempDir()

	custom := filepath.Join(dir, "status.json")
	os.WriteFile(custom, []byte(`{"description":{"text":"custom"}}`), 0644)

	broken := filepath.Join(dir, "broken.json")
	os.WriteFile(broken, []byte(`{`), 0644)

	doc, err := ResolveStatusTemplate(custom)
	if err != nil {
		t.Fatalf("custom template: %v", err)
	}
	if desc, _ := doc["description"].(map[string]interface{}); desc["text"] != "custom" {
		t.Errorf("custom template not used: %v", doc)
	}

	for _, path := range []string{"", filepath.Join(dir, "missing.json")} {
		doc, err := ResolveStatusTemplate(path)
		if err != nil {
			t.Fatalf("fallback for %q: %v", path, err)
		}
		if _, ok := doc["version"]; !ok {
			t.Errorf("built-in template missing version: %v", doc)
		}
	}

	if _, err := ResolveStatusTemplate(broken); err == nil {
		t.Error("broken template accepted")
	}
}

func TestEncodeIcon(t *testing.T) {
	got := EncodeIcon([]byte{0x89, 'P', 'N', 'G'})
	if want := "data:image/png;base64,iVBORw=="; got != want {
		t.Errorf("EncodeIcon = %q, want %q", got, want)
	}
}

func TestLoadIcon(t *testing.T) {
	path := filepath.Join(t.TempDir(), "icon.png")
	os.WriteFile(path, []byte("png"), 0644)

	icon, err := LoadIcon(path)
	if err != nil {
		t.Fatalf("LoadIcon error: %v", err)
	}
	if !strings.HasPrefix(icon, "data:image/png;base64,") {
		t.Errorf("icon = %q", icon)
	}

	if _, err := LoadIcon(path + ".missing"); err == nil {
		t.Error("missing icon accepted")
	}
}

func TestStatusResponderFavicon(t *testing.T) {
	tmpl := map[string]interface{}{"favicon": "old", "players": map[string]interface{}{"max": 1}}

	decode := func(r *StatusResponder) map[string]interface{} {
		raw, _, err := protocol.ReadStringBytes(bytes.NewReader(r.Payload()))
		if err != nil {
			t.Fatalf("payload: %v", err)
		}
		var doc map[string]interface{}
		if err := json.Unmarshal(raw, &doc); err != nil {
			t.Fatalf("payload JSON: %v", err)
		}
		return doc
	}

	withIcon, err := NewStatusResponder(tmpl, "data:image/png;base64,new")
	if err != nil {
		t.Fatal(err)
	}
	if got := decode(withIcon)["favicon"]; got != "data:image/png;base64,new" {
		t.Errorf("favicon = %v, want injected value", got)
	}
	if tmpl["favicon"] != "old" {
		t.Errorf("template mutated: %v", tmpl["favicon"])
	}

	withoutIcon, err := NewStatusResponder(tmpl, "")
	if err != nil {
		t.Fatal(err)
	}
	if got := decode(withoutIcon)["favicon"]; got != "old" {
		t.Errorf("favicon = %v, want template value", got)
	}
}

func TestStateString(t *testing.T) {
	if StateStatus.String() != "status" || State(42).String() != "unknown" {
		t.Errorf("unexpected state names")
	}
}
