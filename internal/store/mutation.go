package store

import (
	"context"
	"log/slog"

	"github.com/tartampluch/go-moodgrid/internal/config"
)

// mutation describes one optimistic change. Every hook except remote runs
// with Store.mu held.
type mutation[T any] struct {
	op  string
	log *slog.Logger

	// apply writes the optimistic value, captures the rollback target when no
	// other write is in flight and issues the request id.
	apply func(st *State)
	// remote performs the call against the service.
	remote func(ctx context.Context, token string) (T, error)
	// reconcile replaces the optimistic value with the server-confirmed one.
	reconcile func(st *State, confirmed T)
	// rebase records a confirmed value from a superseded request as the new
	// rollback target. Optional.
	rebase func(st *State, confirmed T)
	// revert restores the rollback target.
	revert func(st *State)
	// latest reports whether no newer request was issued for the same resource.
	latest func() bool
	// settle clears busy flags. It runs in every terminal path.
	settle func(st *State, latest bool)
}

// runMutation applies m optimistically, resolves it remotely and reconciles or
// rolls back. Results of superseded requests are dropped.
func runMutation[T any](ctx context.Context, s *Store, m mutation[T]) {
	s.update(m.apply)

	token := s.accessToken(ctx)
	if token == "" {
		s.update(func(st *State) {
			latest := m.latest()
			if latest {
				m.revert(st)
				recordNoSession(st)
				m.log.Warn(config.MsgNoToken, config.LogKeyOperation, m.op)
			}
			m.settle(st, latest)
		})
		return
	}

	confirmed, err := m.remote(ctx, token)

	s.update(func(st *State) {
		latest := m.latest()
		switch {
		case !latest:
			if err == nil && m.rebase != nil {
				m.rebase(st, confirmed)
			}
			m.log.Debug(config.MsgMutationStale, config.LogKeyOperation, m.op)
		case err != nil:
			m.revert(st)
			recordFailure(st, err)
			m.log.Warn(config.MsgMutationFailed,
				config.LogKeyOperation, m.op,
				config.LogKeyError, err,
			)
		default:
			m.reconcile(st, confirmed)
			m.log.Debug(config.MsgMutationOK, config.LogKeyOperation, m.op)
		}
		m.settle(st, latest)
	})
}
