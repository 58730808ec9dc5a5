package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
)

// Realm is advertised in WWW-Authenticate challenges.
const Realm = "dossier"

type BasicAuthEngine struct {
	username string
	password string
}

// NewBasicAuthEngine creates a BasicAuthEngine accepting exactly one
// username and password pair.
func NewBasicAuthEngine(username string, password string) (*BasicAuthEngine, error) {
	if username == "" || password == "" {
		return nil, errors.New("basic auth needs both a username and a password")
	}

	return &BasicAuthEngine{
		username: username,
		password: password,
	}, nil
}

// AuthenticateRequest checks the Authorization header for valid Basic Auth
// credentials. It returns a User object if the credentials are valid, nil otherwise.
func (e *BasicAuthEngine) AuthenticateRequest(ctx context.Context, r *http.Request) (*User, error) {
	user, pass, ok := r.BasicAuth()
	if !ok {
		return nil, nil
	}

	userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(e.username))
	passMatch := subtle.ConstantTimeCompare([]byte(pass), []byte(e.password))
	if userMatch&passMatch != 1 {
		return nil, nil
	}

	return &User{
		Name: user,
	}, nil
}
