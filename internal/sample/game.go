// Package sample wires a small application through compose. It backs the
// composectl command and documents typical registrations.
package sample

import (
	"context"
	"fmt"

	"github.com/centraunit/compose"
)

// CurrentUser is the user of one scope. It is set right after the scope is
// created, before anything depending on it is resolved.
type CurrentUser struct {
	Name string
}

// GameManager runs a game for the current user.
type GameManager struct {
	User *CurrentUser
}

func NewGameManager(u *CurrentUser) *GameManager {
	return &GameManager{User: u}
}

func (g *GameManager) Greeting() string {
	return fmt.Sprintf("welcome back, %s", g.User.Name)
}

// PlayAs creates one scope per player, names its CurrentUser and resolves
// the scope's GameManager. Scopes are disposed before returning.
func PlayAs(ctx context.Context, root *compose.Container, players ...string) ([]*GameManager, error) {
	managers := make([]*GameManager, 0, len(players))
	for _, name := range players {
		scope, err := root.CreateScope()
		if err != nil {
			return nil, err
		}
		gm, err := playIn(ctx, scope, name)
		if cerr := scope.Dispose(ctx); err == nil {
			err = cerr
		}
		if err != nil {
			return nil, fmt.Errorf("play as %s: %w", name, err)
		}
		managers = append(managers, gm)
	}
	return managers, nil
}

func playIn(ctx context.Context, scope *compose.Container, name string) (*GameManager, error) {
	user, err := compose.Resolve[*CurrentUser](ctx, scope)
	if err != nil {
		return nil, err
	}
	user.Name = name
	return compose.Resolve[*GameManager](ctx, scope)
}
