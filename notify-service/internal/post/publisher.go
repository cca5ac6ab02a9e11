// Package post publishes announcement posts into room threads.
package post

import (
	"context"
	"errors"
	"fmt"

	"github.com/weiawesome/wes-io-live/notify-service/internal/domain"
	"github.com/weiawesome/wes-io-live/notify-service/internal/platform"
	"github.com/weiawesome/wes-io-live/pkg/log"
)

var ErrPublishFailed = errors.New("post publish failed")

// Store is the slice of the platform the publisher needs.
type Store interface {
	PublishPost(ctx context.Context, req platform.PostRequest) (*domain.Post, error)
}

// Publisher writes one post per call. Calls are never retried so a
// partially failed request cannot double-post.
type Publisher struct {
	store     Store
	isMention bool
}

// NewPublisher creates a new post publisher. isMention marks posts so the
// platform notifies thread members.
func NewPublisher(store Store, isMention bool) *Publisher {
	return &Publisher{store: store, isMention: isMention}
}

// Publish returns the new post id.
func (p *Publisher) Publish(ctx context.Context, threadID, title, body string, actor domain.ActorIdentity) (string, error) {
	post, err := p.store.PublishPost(ctx, platform.PostRequest{
		ThreadID:  threadID,
		Title:     title,
		Content:   body,
		IsMention: p.isMention,
		Actor:     actor,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	l := log.Ctx(ctx)
	l.Debug().Str(log.FieldThreadID, threadID).Str(log.FieldPostID, post.ID).Msg("post published")
	return post.ID, nil
}
