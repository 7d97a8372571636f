package browser

import (
	"math/rand"
	"time"

	"github.com/playwright-community/playwright-go"
)

// RandomDelay waits for a random duration between min and max milliseconds
func RandomDelay(min, max int) {
	if min >= max {
		time.Sleep(time.Duration(min) * time.Millisecond)
		return
	}
	duration := rand.Intn(max-min+1) + min
	time.Sleep(time.Duration(duration) * time.Millisecond)
}

// Settle scrolls through the page so lazily rendered sections (criteria, hiring team) attach,
// then returns to the top.
func Settle(page playwright.Page) {
	for i := 0; i < 3; i++ {
		if _, err := page.Evaluate("window.scrollBy(0, window.innerHeight / 2)"); err != nil {
			return
		}
		RandomDelay(150, 350)
	}
	_, _ = page.Evaluate("window.scrollTo(0, 0)")
}
