package usage

import "time"

// Default plan applied to every user until billing exists.
const (
	DefaultPlan   = "Starter"
	DefaultLimit  = 10
	DefaultPeriod = 7 * 24 * time.Hour
)

// Period tracks how many generations a user has consumed in the current
// rolling window. The window resets when ResetsAt passes.
type Period struct {
	UserID   string    `json:"userId"`
	Plan     string    `json:"plan"`
	Limit    int       `json:"limit"`
	Used     int       `json:"used"`
	ResetsAt time.Time `json:"resetsAt"`
}

// Remaining returns how many generations are left in the window.
func (p Period) Remaining() int {
	if p.Used >= p.Limit {
		return 0
	}
	return p.Limit - p.Used
}

// Expired reports whether the window has rolled over.
func (p Period) Expired(now time.Time) bool {
	return !now.Before(p.ResetsAt)
}
