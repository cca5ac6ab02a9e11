package platform

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/weiawesome/wes-io-live/notify-service/internal/domain"
	"github.com/weiawesome/wes-io-live/notify-service/internal/idgen"
	"github.com/weiawesome/wes-io-live/pkg/log"
)

const wildcardActor = "*"

// GormStore keeps the room directory, threads, posts and grants in a
// relational database.
type GormStore struct {
	db       *gorm.DB
	threadID idgen.Generator
	postID   idgen.Generator
}

// NewGormStore creates a new GORM-backed platform store.
func NewGormStore(db *gorm.DB, threadIDs, postIDs idgen.Generator) *GormStore {
	return &GormStore{db: db, threadID: threadIDs, postID: postIDs}
}

// OrganizationForRoom returns the organization owning roomID.
func (s *GormStore) OrganizationForRoom(ctx context.Context, roomID string) (string, error) {
	l := log.Ctx(ctx)

	var model domain.RoomModel
	result := s.db.WithContext(ctx).First(&model, "id = ?", roomID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", ErrRoomNotFound
		}
		l.Error().Err(result.Error).Str(log.FieldRoomID, roomID).Msg("failed to get room by id")
		return "", result.Error
	}
	if model.OrganizationID == "" {
		return "", ErrNoOrganization
	}
	return model.OrganizationID, nil
}

// AccessLevel returns the user's level in the room, or no_access.
func (s *GormStore) AccessLevel(ctx context.Context, roomID, userID string) (string, error) {
	var model domain.AccessLevelModel
	result := s.db.WithContext(ctx).First(&model, "room_id = ? AND user_id = ?", roomID, userID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return domain.AccessNone, nil
		}
		return "", result.Error
	}
	return model.Level, nil
}

// LocateOrCreateThread returns the room's thread, creating it when absent.
// Creation requires the threads:write grant in the organization; the unique
// room_id index settles races between processes.
func (s *GormStore) LocateOrCreateThread(ctx context.Context, req ThreadRequest) (*domain.Thread, error) {
	l := log.Ctx(ctx)

	existing, err := s.threadByRoom(ctx, req.RoomID)
	if err == nil {
		if existing.OrganizationID != req.OrganizationID {
			return nil, fmt.Errorf("thread %s belongs to another organization: %w", existing.ID, ErrPermissionDenied)
		}
		return existing, nil
	}
	if !errors.Is(err, ErrThreadNotFound) {
		return nil, err
	}

	ok, err := s.hasGrant(ctx, req.OrganizationID, req.Actor, domain.CapabilityThreadsWrite)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPermissionDenied
	}

	id, err := s.threadID.Generate()
	if err != nil {
		return nil, err
	}
	model := domain.ThreadToModel(&domain.Thread{
		ID:             id,
		RoomID:         req.RoomID,
		OrganizationID: req.OrganizationID,
		Name:           req.Name,
		WhoCanPost:     req.WhoCanPost,
		CreatedBy:      req.Actor.ID(),
	})

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "room_id"}}, DoNothing: true}).
		Create(model)
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldRoomID, req.RoomID).Msg("failed to create thread in db")
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		l.Debug().Str(log.FieldRoomID, req.RoomID).Msg("thread created concurrently, reloading")
	}

	return s.threadByRoom(ctx, req.RoomID)
}

// PublishPost writes a post into a thread. Threads not open to everyone
// require the posts:write grant.
func (s *GormStore) PublishPost(ctx context.Context, req PostRequest) (*domain.Post, error) {
	l := log.Ctx(ctx)

	var thread domain.ThreadModel
	result := s.db.WithContext(ctx).First(&thread, "id = ?", req.ThreadID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrThreadNotFound
		}
		return nil, result.Error
	}

	if thread.WhoCanPost != domain.WhoCanPostEveryone {
		ok, err := s.hasGrant(ctx, thread.OrganizationID, req.Actor, domain.CapabilityPostsWrite)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrPermissionDenied
		}
	}

	id, err := s.postID.Generate()
	if err != nil {
		return nil, err
	}
	model := domain.PostToModel(&domain.Post{
		ID:        id,
		ThreadID:  thread.ID,
		Title:     req.Title,
		Content:   req.Content,
		IsMention: req.IsMention,
		AuthorID:  req.Actor.ID(),
	})
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		l.Error().Err(err).Str(log.FieldThreadID, thread.ID).Msg("failed to create post in db")
		return nil, err
	}

	l.Debug().Str(log.FieldThreadID, thread.ID).Str(log.FieldPostID, id).Msg("post created in db")
	return model.ToDomain(), nil
}

// RegisterRoom binds a room to its organization.
func (s *GormStore) RegisterRoom(ctx context.Context, roomID, organizationID string) error {
	model := &domain.RoomModel{ID: roomID, OrganizationID: organizationID}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"organization_id"}),
		}).
		Create(model).Error
}

// Grant gives actorID of kind the capability in organizationID. Use "*" as
// actorID to grant every actor of that kind.
func (s *GormStore) Grant(ctx context.Context, organizationID string, kind domain.ActorKind, actorID, capability string) error {
	model := &domain.GrantModel{
		OrganizationID: organizationID,
		ActorKind:      string(kind),
		ActorID:        actorID,
		Capability:     capability,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(model).Error
}

// SetAccessLevel records a user's access level in a room.
func (s *GormStore) SetAccessLevel(ctx context.Context, roomID, userID, level string) error {
	model := &domain.AccessLevelModel{RoomID: roomID, UserID: userID, Level: level}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "room_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"level"}),
		}).
		Create(model).Error
}

// PostsInThread lists a thread's posts, oldest first.
func (s *GormStore) PostsInThread(ctx context.Context, threadID string) ([]domain.Post, error) {
	var models []domain.PostModel
	if err := s.db.WithContext(ctx).Where("thread_id = ?", threadID).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	posts := make([]domain.Post, len(models))
	for i, m := range models {
		posts[i] = *m.ToDomain()
	}
	return posts, nil
}

func (s *GormStore) threadByRoom(ctx context.Context, roomID string) (*domain.Thread, error) {
	var model domain.ThreadModel
	result := s.db.WithContext(ctx).First(&model, "room_id = ?", roomID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrThreadNotFound
		}
		return nil, result.Error
	}
	return model.ToDomain(), nil
}

func (s *GormStore) hasGrant(ctx context.Context, organizationID string, actor domain.ActorIdentity, capability string) (bool, error) {
	if actor.IsNone() {
		return false, nil
	}
	var count int64
	err := s.db.WithContext(ctx).Model(&domain.GrantModel{}).
		Where("organization_id = ? AND actor_kind = ? AND capability = ?", organizationID, string(actor.Kind), capability).
		Where("actor_id IN ?", []string{actor.ID(), wildcardActor}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
