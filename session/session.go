// Package session keeps the operator's authenticated session: tokens, the signed-in user
// and the business every request acts for.
package session

import (
	"context"
	"errors"
	"time"

	"hisaabpos/api"
)

// ErrNoSession is returned when no session has been stored
var ErrNoSession = errors.New("not logged in")

// Session is a stored login
type Session struct {
	Access  string    `json:"access"`
	Refresh string    `json:"refresh"`
	User    api.User  `json:"user"`
	SavedAt time.Time `json:"saved_at"`
}

// Valid reports whether the session carries an access token
func (s Session) Valid() bool {
	return s.Access != ""
}

// Store persists one session
type Store interface {
	Load(ctx context.Context) (Session, error)
	Save(ctx context.Context, s Session) error
	Clear(ctx context.Context) error
}
