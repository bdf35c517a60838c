package feed

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"emergency_dashboard/internal/models"

	"gopkg.in/yaml.v3"
)

//go:embed templates/feed.yaml
var defaultFeed []byte

// Alert types understood by the rendering layer.
const (
	TypeFire      = "fire"
	TypeNormal    = "normal"
	TypeEmergency = "emergency"
)

var errEmptyNav = errors.New("feed: nav must list at least one tab")

// Template is an alert line without its timestamp.
type Template struct {
	Message string `yaml:"message"`
	Type    string `yaml:"type"`
}

// Feed holds the dashboard's navigation tabs and alert templates.
type Feed struct {
	Nav    []string   `yaml:"nav"`
	Alerts []Template `yaml:"alerts"`
}

// Default returns the embedded feed.
func Default() (Feed, error) {
	return parse(defaultFeed)
}

// Load reads a feed from path. An empty path, or a file that does not exist,
// yields the embedded default.
func Load(path string) (Feed, error) {
	if path == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default()
		}
		return Feed{}, fmt.Errorf("read feed file: %w", err)
	}
	return parse(raw)
}

func parse(raw []byte) (Feed, error) {
	var f Feed
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return Feed{}, fmt.Errorf("parse feed yaml: %w", err)
	}
	if err := f.validate(); err != nil {
		return Feed{}, err
	}
	return f, nil
}

func (f Feed) validate() error {
	if len(f.Nav) == 0 {
		return errEmptyNav
	}
	for i, a := range f.Alerts {
		switch a.Type {
		case TypeFire, TypeNormal, TypeEmergency:
		default:
			return fmt.Errorf("feed: alert %d has unknown type %q", i, a.Type)
		}
	}
	return nil
}

// Render stamps every alert template with the given clock text.
func (f Feed) Render(clock string) []models.Alert {
	out := make([]models.Alert, 0, len(f.Alerts))
	for _, a := range f.Alerts {
		out = append(out, models.Alert{Time: clock, Message: a.Message, Type: a.Type})
	}
	return out
}
