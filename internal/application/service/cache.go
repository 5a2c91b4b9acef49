package service

import (
	"context"

	"github.com/networkpro/user-service/internal/domain/profile"
)

// ProfileCache is a read-through cache of owner-view profiles keyed by id.
// Implementations swallow their own failures; a miss is always safe.
//
// Readers take Version before loading the row and pass it to Set. Set drops
// the write when Invalidate ran for the id in between, so a read that raced a
// commit never puts the old row back.
type ProfileCache interface {
	Get(ctx context.Context, id int64) (*profile.UserProfile, bool)
	// Version is negative when it cannot be read; Set ignores such versions.
	Version(ctx context.Context, id int64) int64
	Set(ctx context.Context, p *profile.UserProfile, version int64)
	Invalidate(ctx context.Context, id int64)
}

type nopCache struct{}

func NewNopCache() ProfileCache { return nopCache{} }

func (nopCache) Get(context.Context, int64) (*profile.UserProfile, bool) { return nil, false }
func (nopCache) Version(context.Context, int64) int64                    { return 0 }
func (nopCache) Set(context.Context, *profile.UserProfile, int64)       {}
func (nopCache) Invalidate(context.Context, int64)                      {}
