package auth

import (
	"context"
	"log/slog"
)

// Revoker ends sessions on logout: the row is deleted and any cached copy
// is evicted.
type Revoker struct {
	sessions SessionWriter
	cache    SessionCache
}

func NewRevoker(sessions SessionWriter, cache SessionCache) *Revoker {
	return &Revoker{sessions: sessions, cache: cache}
}

func (r *Revoker) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	if r.cache != nil {
		if err := r.cache.Delete(ctx, token); err != nil {
			slog.Default().WarnContext(ctx, "session cache evict failed", "err", err)
		}
	}

	_, err := r.sessions.DeleteSessionsByToken(ctx, token)
	return err
}
