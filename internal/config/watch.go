package config

import (
	"context"
	"os"
	"time"
)

// WatchVenues reloads the venues file on change and calls onUpdate with the latest scope.
// It performs an initial load before entering the watch loop.
func WatchVenues(ctx context.Context, path string, interval time.Duration, onUpdate func(*VenueScope)) error {
	if interval <= 0 {
		interval = 30 * time.Second
	}

	scope, err := LoadVenueScope(path)
	if err != nil {
		return err
	}
	if onUpdate != nil {
		onUpdate(scope)
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	lastMod := info.ModTime()

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				info, err := os.Stat(path)
				if err != nil {
					continue // transient errors
				}
				if !info.ModTime().After(lastMod) {
					continue
				}
				scope, err := LoadVenueScope(path)
				if err != nil {
					continue
				}
				lastMod = info.ModTime()
				if onUpdate != nil {
					onUpdate(scope)
				}
			}
		}
	}()

	return nil
}
