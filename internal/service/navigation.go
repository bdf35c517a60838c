package service

import (
	"context"
	"fmt"

	"emergency_dashboard/internal/models"
	"emergency_dashboard/internal/navigation"
)

type NavigationService struct {
	nav navigation.Navigator
	rec *Recorder
}

func NewNavigationService(nav navigation.Navigator, rec *Recorder) *NavigationService {
	return &NavigationService{nav: nav, rec: rec}
}

// Navigate resolves link, hands the path to the injected navigator and
// returns it.
func (s *NavigationService) Navigate(ctx context.Context, link string) (string, error) {
	path, err := navigation.Resolve(link)
	if err != nil {
		return "", err
	}
	if err := s.nav.Navigate(ctx, path); err != nil {
		return "", fmt.Errorf("navigate to %s: %w", path, err)
	}
	s.rec.Record(models.EventNavigated, "Navigated to "+path, map[string]any{
		"link": link,
		"path": path,
	})
	return path, nil
}
