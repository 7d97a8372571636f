// Package session owns the persisted LinkedIn login profile.
//
// The profile is a playwright storage-state file. It is written only by an explicit
// setup or import and is read-only while scraping.
package session

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"go-linkedin-scraper/internal/browser"
	"go-linkedin-scraper/internal/scraper"
)

type Manager struct {
	profilePath string
	loginURL    string
	launch      browser.LaunchFunc
	log         *slog.Logger
}

// New manages the profile at profilePath; SetupProfile starts the login flow at loginURL.
func New(profilePath, loginURL string, launch browser.LaunchFunc, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{profilePath: profilePath, loginURL: loginURL, launch: launch, log: log}
}

func (m *Manager) ProfilePath() string {
	return m.profilePath
}

// ProfileExists reports whether a readable profile with at least one cookie is on disk.
func (m *Manager) ProfileExists() bool {
	state, err := browser.ReadStorageState(m.profilePath)
	return err == nil && len(state.Cookies) > 0
}

// SetupProfile opens a visible browser on the login page and records the session
// until the user closes the window. The profile file is replaced atomically.
func (m *Manager) SetupProfile(ctx context.Context) error {
	m.log.Info("🔐 Opening browser for login", slog.String("url", m.loginURL), slog.String("profile", m.profilePath))

	b, err := m.launch(ctx, browser.LaunchOptions{Headless: false, Logger: m.log})
	if err != nil {
		return fmt.Errorf("%w: launch browser: %v", scraper.ErrProfileSetup, err)
	}
	defer b.Close()

	if err := b.RecordSession(ctx, m.loginURL, m.profilePath); err != nil {
		return fmt.Errorf("%w: %v", scraper.ErrProfileSetup, err)
	}

	state, err := browser.ReadStorageState(m.profilePath)
	if err != nil {
		return fmt.Errorf("%w: %v", scraper.ErrProfileSetup, err)
	}
	if len(state.Cookies) == 0 {
		return fmt.Errorf("%w: no cookies captured, was the login completed?", scraper.ErrProfileSetup)
	}

	m.log.Info("✅ Profile saved", slog.String("profile", m.profilePath), slog.Int("cookies", len(state.Cookies)))
	return nil
}

// ImportCookies builds the profile from a cookie-editor style JSON export.
func (m *Manager) ImportCookies(cookiePath string) error {
	state, err := browser.StorageStateFromCookies(cookiePath)
	if err != nil {
		return fmt.Errorf("%w: %v", scraper.ErrProfileSetup, err)
	}
	if err := browser.WriteStorageState(m.profilePath, state); err != nil {
		return fmt.Errorf("%w: write profile: %v", scraper.ErrProfileSetup, err)
	}
	m.log.Info("🍪 Cookies imported", slog.String("profile", m.profilePath), slog.Int("cookies", len(state.Cookies)))
	return nil
}

// ResetProfile deletes the stored profile. A missing profile is not an error.
func (m *Manager) ResetProfile() error {
	if err := os.Remove(m.profilePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove profile: %w", err)
	}
	m.log.Info("🗑️ Profile removed", slog.String("profile", m.profilePath))
	return nil
}

// AcquireContext opens a browser context, preloaded with the profile when one is
// usable. A missing or unreadable profile degrades to an anonymous context.
// The caller owns the returned context and must close it.
func (m *Manager) AcquireContext(b browser.Browser, useProfile bool) (browser.Context, error) {
	opts := browser.ContextOptions{}
	if useProfile {
		switch _, err := browser.ReadStorageState(m.profilePath); {
		case err == nil:
			opts.StorageStatePath = m.profilePath
		case errors.Is(err, fs.ErrNotExist):
			m.log.Warn("⚠️ No saved profile, continuing anonymously; run setup-profile to log in",
				slog.String("profile", m.profilePath))
		default:
			m.log.Warn("⚠️ Profile unreadable, continuing anonymously",
				slog.String("profile", m.profilePath), slog.Any("error", err))
		}
	}

	bctx, err := b.NewContext(opts)
	if err != nil {
		return nil, fmt.Errorf("new browser context: %w", err)
	}
	return bctx, nil
}
