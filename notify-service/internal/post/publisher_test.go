package post

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/wes-io-live/notify-service/internal/domain"
	"github.com/weiawesome/wes-io-live/notify-service/internal/platform"
)

type fakeStore struct {
	req   platform.PostRequest
	err   error
	calls int
}

func (f *fakeStore) PublishPost(_ context.Context, req platform.PostRequest) (*domain.Post, error) {
	f.calls++
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Post{ID: "p1", ThreadID: req.ThreadID}, nil
}

func TestPublish(t *testing.T) {
	store := &fakeStore{}
	publisher := NewPublisher(store, true)

	id, err := publisher.Publish(context.Background(), "t1", "title", "body", domain.UserActor("u1"))
	require.NoError(t, err)
	assert.Equal(t, "p1", id)
	assert.Equal(t, platform.PostRequest{
		ThreadID:  "t1",
		Title:     "title",
		Content:   "body",
		IsMention: true,
		Actor:     domain.UserActor("u1"),
	}, store.req)
}

func TestPublishDoesNotRetry(t *testing.T) {
	store := &fakeStore{err: platform.ErrPermissionDenied}
	publisher := NewPublisher(store, false)

	_, err := publisher.Publish(context.Background(), "t1", "title", "body", domain.UserActor("u1"))
	assert.ErrorIs(t, err, ErrPublishFailed)
	assert.ErrorIs(t, err, platform.ErrPermissionDenied)
	assert.Equal(t, 1, store.calls)

	store.err = errors.New("timeout")
	_, err = publisher.Publish(context.Background(), "t1", "title", "body", domain.UserActor("u1"))
	assert.ErrorIs(t, err, ErrPublishFailed)
}
