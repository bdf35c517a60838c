package feed

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	f, err := Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if len(f.Nav) != 4 {
		t.Fatalf("nav tabs = %d, want 4", len(f.Nav))
	}
	if len(f.Alerts) != 3 {
		t.Fatalf("alerts = %d, want 3", len(f.Alerts))
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file falls back to default", func(t *testing.T) {
		f, err := Load(filepath.Join(dir, "nope.yaml"))
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if len(f.Nav) != 4 {
			t.Fatalf("expected default feed, got %+v", f)
		}
	})

	t.Run("custom file", func(t *testing.T) {
		p := filepath.Join(dir, "feed.yaml")
		body := "nav: [a, b]\nalerts:\n  - {message: smoke rising, type: fire}\n"
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		f, err := Load(p)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if len(f.Nav) != 2 || f.Alerts[0].Message != "smoke rising" {
			t.Fatalf("unexpected feed: %+v", f)
		}
	})

	t.Run("rejects unknown alert type", func(t *testing.T) {
		p := filepath.Join(dir, "bad.yaml")
		body := "nav: [a]\nalerts:\n  - {message: x, type: purple}\n"
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(p); err == nil {
			t.Fatalf("expected validation error")
		}
	})

	t.Run("rejects empty nav", func(t *testing.T) {
		p := filepath.Join(dir, "empty.yaml")
		if err := os.WriteFile(p, []byte("alerts: []\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(p); err == nil {
			t.Fatalf("expected validation error")
		}
	})
}

func TestRender_StampsClock(t *testing.T) {
	f := Feed{Nav: []string{"x"}, Alerts: []Template{{Message: "m1", Type: TypeFire}, {Message: "m2", Type: TypeEmergency}}}
	got := f.Render("09:05")
	if len(got) != 2 {
		t.Fatalf("len = %d", len(got))
	}
	for _, a := range got {
		if a.Time != "09:05" {
			t.Fatalf("alert time = %q, want 09:05", a.Time)
		}
	}
	if got[1].Type != TypeEmergency {
		t.Fatalf("type = %q", got[1].Type)
	}
}
