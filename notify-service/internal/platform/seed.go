package platform

import (
	"context"
	"fmt"

	"github.com/weiawesome/wes-io-live/notify-service/internal/config"
	"github.com/weiawesome/wes-io-live/notify-service/internal/domain"
)

// Seed loads configured room bindings and grants into the store.
func Seed(ctx context.Context, store *GormStore, seed config.SeedConfig) error {
	for _, room := range seed.Rooms {
		if err := store.RegisterRoom(ctx, room.RoomID, room.OrganizationID); err != nil {
			return fmt.Errorf("failed to seed room %s: %w", room.RoomID, err)
		}
	}
	for _, g := range seed.Grants {
		kind := domain.ActorKind(g.ActorKind)
		if kind != domain.ActorUser && kind != domain.ActorService {
			return fmt.Errorf("invalid grant actor kind: %q", g.ActorKind)
		}
		actorID := g.ActorID
		if actorID == "" {
			actorID = wildcardActor
		}
		if err := store.Grant(ctx, g.OrganizationID, kind, actorID, g.Capability); err != nil {
			return fmt.Errorf("failed to seed grant for %s: %w", g.OrganizationID, err)
		}
	}
	return nil
}
