package ratelimit

import (
	"time"

	"github.com/faideww/catchlog/internal/clock"
)

const (
	LoginAttempts   = 5
	LoginWindow     = 15 * time.Minute
	FileUploads     = 10
	FileWindow      = time.Minute
	FormSubmissions = 20
	FormWindow      = time.Minute
)

// Guard holds the process-wide limiters for the three throttled actions.
type Guard struct {
	Login  *Limiter
	Upload *Limiter
	Form   *Limiter
}

func NewGuard(clk clock.Clock) *Guard {
	return &Guard{
		Login:  NewLimiter(LoginAttempts, LoginWindow, clk),
		Upload: NewLimiter(FileUploads, FileWindow, clk),
		Form:   NewLimiter(FormSubmissions, FormWindow, clk),
	}
}
