package platform

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/weiawesome/wes-io-live/notify-service/internal/config"
	"github.com/weiawesome/wes-io-live/notify-service/internal/domain"
	"github.com/weiawesome/wes-io-live/pkg/database"
)

type seqIDs struct {
	mu     sync.Mutex
	prefix string
	n      int
}

func (s *seqIDs) Generate() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("%s%d", s.prefix, s.n), nil
}

func (s *seqIDs) Validate(string) (bool, string) { return true, "" }

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.New(&database.Config{
		Driver:       "sqlite",
		FilePath:     fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		LogLevel:     "silent",
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db, domain.AllModels()...))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	return NewGormStore(newTestDB(t), &seqIDs{prefix: "t"}, &seqIDs{prefix: "p"})
}

func TestOrganizationForRoom(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.RegisterRoom(ctx, "r1", "org1"))
	require.NoError(t, store.RegisterRoom(ctx, "r2", ""))

	org, err := store.OrganizationForRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "org1", org)

	_, err = store.OrganizationForRoom(ctx, "r2")
	assert.ErrorIs(t, err, ErrNoOrganization)

	_, err = store.OrganizationForRoom(ctx, "missing")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestLocateOrCreateThreadCreatesOnceWithGrant(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.RegisterRoom(ctx, "r1", "org1"))
	require.NoError(t, store.Grant(ctx, "org1", domain.ActorUser, "*", domain.CapabilityThreadsWrite))

	req := ThreadRequest{
		OrganizationID: "org1",
		RoomID:         "r1",
		Name:           "Radio Discussions",
		WhoCanPost:     domain.WhoCanPostEveryone,
		Actor:          domain.UserActor("u1"),
	}

	first, err := store.LocateOrCreateThread(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "t1", first.ID)
	assert.Equal(t, "u1", first.CreatedBy)

	second, err := store.LocateOrCreateThread(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestLocateOrCreateThreadWithoutGrantIsDenied(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.RegisterRoom(ctx, "r3", "org3"))
	require.NoError(t, store.Grant(ctx, "org1", domain.ActorUser, "*", domain.CapabilityThreadsWrite))

	_, err := store.LocateOrCreateThread(ctx, ThreadRequest{
		OrganizationID: "org3",
		RoomID:         "r3",
		Name:           "Radio Discussions",
		WhoCanPost:     domain.WhoCanPostEveryone,
		Actor:          domain.UserActor("u1"),
	})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestLocateOrCreateThreadServiceGrantIsScopedToServiceID(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.Grant(ctx, "org1", domain.ActorService, "svc-radio", domain.CapabilityThreadsWrite))

	req := ThreadRequest{OrganizationID: "org1", RoomID: "r1", Name: "n", WhoCanPost: domain.WhoCanPostEveryone}

	req.Actor = domain.ServiceActor("svc-other")
	_, err := store.LocateOrCreateThread(ctx, req)
	assert.ErrorIs(t, err, ErrPermissionDenied)

	req.Actor = domain.ServiceActor("svc-radio")
	thread, err := store.LocateOrCreateThread(ctx, req)
	require.NoError(t, err)
	assert.NotEmpty(t, thread.ID)
}

func TestLocateOrCreateThreadConvergesAcrossStores(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	a := NewGormStore(db, &seqIDs{prefix: "a"}, &seqIDs{prefix: "p"})
	b := NewGormStore(db, &seqIDs{prefix: "b"}, &seqIDs{prefix: "p"})
	require.NoError(t, a.Grant(ctx, "org1", domain.ActorUser, "*", domain.CapabilityThreadsWrite))

	req := ThreadRequest{
		OrganizationID: "org1",
		RoomID:         "r1",
		Name:           "Radio Discussions",
		WhoCanPost:     domain.WhoCanPostEveryone,
		Actor:          domain.UserActor("u1"),
	}

	var wg sync.WaitGroup
	ids := make([]string, 8)
	errs := make([]error, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			store := a
			if i%2 == 1 {
				store = b
			}
			thread, err := store.LocateOrCreateThread(ctx, req)
			errs[i] = err
			if err == nil {
				ids[i] = thread.ID
			}
		}(i)
	}
	wg.Wait()

	for i := range ids {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}

	var count int64
	require.NoError(t, db.Model(&domain.ThreadModel{}).Where("room_id = ?", "r1").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestPublishPost(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.Grant(ctx, "org1", domain.ActorUser, "*", domain.CapabilityThreadsWrite))

	open, err := store.LocateOrCreateThread(ctx, ThreadRequest{
		OrganizationID: "org1", RoomID: "r1", Name: "n",
		WhoCanPost: domain.WhoCanPostEveryone, Actor: domain.UserActor("u1"),
	})
	require.NoError(t, err)

	post, err := store.PublishPost(ctx, PostRequest{
		ThreadID:  open.ID,
		Title:     "🎵 New Listener Joined",
		Content:   "hello",
		IsMention: true,
		Actor:     domain.UserActor("u1"),
	})
	require.NoError(t, err)
	assert.Equal(t, "p1", post.ID)

	posts, err := store.PostsInThread(ctx, open.ID)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "🎵 New Listener Joined", posts[0].Title)
	assert.True(t, posts[0].IsMention)
	assert.Equal(t, "u1", posts[0].AuthorID)

	_, err = store.PublishPost(ctx, PostRequest{ThreadID: "nope", Actor: domain.UserActor("u1")})
	assert.ErrorIs(t, err, ErrThreadNotFound)
}

func TestPublishPostRestrictedThreadNeedsGrant(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.Grant(ctx, "org1", domain.ActorUser, "*", domain.CapabilityThreadsWrite))

	restricted, err := store.LocateOrCreateThread(ctx, ThreadRequest{
		OrganizationID: "org1", RoomID: "r1", Name: "n",
		WhoCanPost: domain.WhoCanPostAdmins, Actor: domain.UserActor("u1"),
	})
	require.NoError(t, err)

	_, err = store.PublishPost(ctx, PostRequest{ThreadID: restricted.ID, Actor: domain.UserActor("u1")})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	require.NoError(t, store.Grant(ctx, "org1", domain.ActorUser, "u1", domain.CapabilityPostsWrite))
	_, err = store.PublishPost(ctx, PostRequest{ThreadID: restricted.ID, Actor: domain.UserActor("u1")})
	assert.NoError(t, err)
}

func TestAccessLevel(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.SetAccessLevel(ctx, "r1", "u1", domain.AccessAdmin))

	level, err := store.AccessLevel(ctx, "r1", "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.AccessAdmin, level)

	level, err = store.AccessLevel(ctx, "r1", "u2")
	require.NoError(t, err)
	assert.Equal(t, domain.AccessNone, level)

	require.NoError(t, store.SetAccessLevel(ctx, "r1", "u1", domain.AccessCustomer))
	level, err = store.AccessLevel(ctx, "r1", "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.AccessCustomer, level)
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	err := Seed(ctx, store, config.SeedConfig{
		Rooms:  []config.RoomSeed{{RoomID: "r1", OrganizationID: "org1"}},
		Grants: []config.GrantSeed{{OrganizationID: "org1", ActorKind: "user", Capability: domain.CapabilityThreadsWrite}},
	})
	require.NoError(t, err)

	org, err := store.OrganizationForRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "org1", org)

	ok, err := store.hasGrant(ctx, "org1", domain.UserActor("anyone"), domain.CapabilityThreadsWrite)
	require.NoError(t, err)
	assert.True(t, ok)

	err = Seed(ctx, store, config.SeedConfig{Grants: []config.GrantSeed{{OrganizationID: "org1", ActorKind: "none"}}})
	assert.Error(t, err)
}
