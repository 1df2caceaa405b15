package session

import "time"

// Session is the cache-persisted state for one authenticated browser.
//
// ID is derived from the raw token and is the only identity the store knows;
// TwoFactorVerified starts false at creation and is flipped exactly once per
// login after a successful two-factor challenge.
type Session struct {
	ID                string
	UserID            string
	TwoFactorVerified bool
	ExpiresAt         time.Time
	CreatedAt         time.Time
}
