// Package auth resolves the caller of a request to an Actor. It answers
// "who is this and may they approve edits", nothing more.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// ErrUnauthenticated indicates the request carried no usable identity.
var ErrUnauthenticated = errors.New("unauthenticated")

// Actor is a resolved caller identity.
type Actor struct {
	ID         string
	Privileged bool
}

// Resolver extracts the calling actor from an HTTP request.
type Resolver interface {
	Resolve(r *http.Request) (Actor, error)
}

// Directory knows which actors are privileged. Unknown actors are regular
// employees.
type Directory struct {
	privileged map[string]bool
}

// NewDirectory builds a directory from actor id -> privileged.
func NewDirectory(actors map[string]bool) *Directory {
	d := &Directory{privileged: make(map[string]bool, len(actors))}
	for id, priv := range actors {
		d.privileged[strings.TrimSpace(id)] = priv
	}
	return d
}

// Lookup returns the Actor for id.
func (d *Directory) Lookup(id string) Actor {
	id = strings.TrimSpace(id)
	if d == nil {
		return Actor{ID: id}
	}
	return Actor{ID: id, Privileged: d.privileged[id]}
}

// HeaderResolver trusts an identity header set by a fronting proxy.
type HeaderResolver struct {
	Header    string
	Directory *Directory
}

// Resolve implements Resolver.
func (h HeaderResolver) Resolve(r *http.Request) (Actor, error) {
	id := strings.TrimSpace(r.Header.Get(h.Header))
	if id == "" {
		return Actor{}, ErrUnauthenticated
	}
	return h.Directory.Lookup(id), nil
}

// Chain tries each resolver in order and returns the first identity found.
type Chain []Resolver

// Resolve implements Resolver.
func (c Chain) Resolve(r *http.Request) (Actor, error) {
	for _, res := range c {
		actor, err := res.Resolve(r)
		if err == nil {
			return actor, nil
		}
		if !errors.Is(err, ErrUnauthenticated) {
			return Actor{}, err
		}
	}
	return Actor{}, ErrUnauthenticated
}

type actorContextKey struct{}

// WithActor stores the resolved actor in context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext returns the actor stored in context.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
