package browser

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/playwright-community/playwright-go"
)

// ScreenshotDebugger saves full-page screenshots of pages that failed to show a posting.
type ScreenshotDebugger struct {
	outputDir string
	log       *slog.Logger
}

func NewScreenshotDebugger(dir string, log *slog.Logger) *ScreenshotDebugger {
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Warn("Screenshot directory unavailable", slog.String("dir", dir), slog.String("error", err.Error()))
	}
	return &ScreenshotDebugger{
		outputDir: dir,
		log:       log,
	}
}

// ScreenshotPath names a capture: <name>_<timestamp>.png inside dir.
func ScreenshotPath(dir, name string, at time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.png", name, at.Format("2006-01-02_15-04-05.000")))
}

func (s *ScreenshotDebugger) CaptureAndLog(page playwright.Page, name, message string) error {
	path := ScreenshotPath(s.outputDir, name, time.Now())
	s.log.Info("📸 "+message, slog.String("name", name))

	_, err := page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	if err != nil {
		s.log.Warn("Failed to capture screenshot", slog.String("error", err.Error()))
		return err
	}

	s.log.Info("Screenshot saved", slog.String("path", path))
	return nil
}
