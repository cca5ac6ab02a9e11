package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/weiawesome/wes-io-live/notify-service/internal/audit"
	"github.com/weiawesome/wes-io-live/notify-service/internal/domain"
	"github.com/weiawesome/wes-io-live/notify-service/internal/thread"
	"github.com/weiawesome/wes-io-live/pkg/log"
	"github.com/weiawesome/wes-io-live/pkg/notify"
)

// Acting identity modes.
const (
	ActAsUser    = "user"
	ActAsService = "service"
)

// Policy parameterizes authorization and the identity platform calls use.
type Policy struct {
	RequireAuth    bool
	RequiredLevel  string
	ActingIdentity string
	ServiceID      string
}

// Options configures the gateway.
type Options struct {
	Policy        Policy
	ThreadName    string
	WhoCanPost    string
	Template      Template
	BroadcastText string
	CallTimeout   time.Duration
}

// Deps are the gateway's collaborators. Access and Broadcaster may be nil
// when the matching feature is unused.
type Deps struct {
	Identity    IdentityResolver
	Directory   DirectoryResolver
	Threads     ThreadLocator
	Posts       PostPublisher
	Access      AccessChecker
	Broadcaster Broadcaster
}

type notifyServiceImpl struct {
	deps Deps
	opts Options
}

// NewNotifyService creates the join notification gateway.
func NewNotifyService(deps Deps, opts Options) NotifyService {
	if opts.ThreadName == "" {
		opts.ThreadName = "Radio Discussions"
	}
	if opts.WhoCanPost == "" {
		opts.WhoCanPost = domain.WhoCanPostEveryone
	}
	if opts.Policy.ActingIdentity == "" {
		opts.Policy.ActingIdentity = ActAsUser
	}
	return &notifyServiceImpl{deps: deps, opts: opts}
}

// NotifyJoin runs identity, directory, thread and post steps in order and
// folds every failure, including panics, into an Outcome.
func (s *notifyServiceImpl) NotifyJoin(ctx context.Context, req *notify.NotifyJoinRequest, creds domain.Credentials) (outcome domain.Outcome) {
	roomID := ""
	if req != nil {
		roomID = strings.TrimSpace(req.RoomID)
	}
	ctx = log.WithRoom(ctx, roomID)

	defer func() {
		if r := recover(); r != nil {
			l := log.Ctx(ctx)
			l.Error().Interface("panic", r).Msg("recovered panic in join notification")
			actor := outcome.Actor
			outcome = domain.Failure(domain.FailureInternal, "internal error")
			outcome.Actor = actor
		}
		audit.LogOutcome(ctx, roomID, outcome)
	}()

	if roomID == "" {
		return domain.Failure(domain.FailureInput, "missing room id")
	}

	if s.opts.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.CallTimeout)
		defer cancel()
	}

	actor := s.deps.Identity.Resolve(ctx, creds)
	outcome.Actor = actor

	outcome = s.authorize(ctx, roomID, actor)
	outcome.Actor = actor
	if outcome.Kind != "" {
		return outcome
	}

	outcome = s.deliver(ctx, roomID, req, actor)
	outcome.Actor = actor
	return outcome
}

// authorize returns a zero Outcome when the request may proceed.
func (s *notifyServiceImpl) authorize(ctx context.Context, roomID string, actor domain.ActorIdentity) domain.Outcome {
	policy := s.opts.Policy

	if policy.RequireAuth && actor.IsNone() {
		return domain.Unauthorized(domain.LevelAuthenticatedUser)
	}

	if policy.RequiredLevel == "" {
		return domain.Outcome{}
	}
	if actor.Kind != domain.ActorUser {
		return domain.Unauthorized(policy.RequiredLevel)
	}
	if s.deps.Access == nil {
		return domain.Failure(domain.FailureAuth, "access levels unavailable")
	}

	level, err := s.deps.Access.AccessLevel(ctx, roomID, actor.UserID)
	if err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Msg("access level lookup failed")
		return domain.Unauthorized(policy.RequiredLevel)
	}
	if level != policy.RequiredLevel {
		return domain.Unauthorized(policy.RequiredLevel)
	}
	return domain.Outcome{}
}

func (s *notifyServiceImpl) deliver(ctx context.Context, roomID string, req *notify.NotifyJoinRequest, actor domain.ActorIdentity) domain.Outcome {
	l := log.Ctx(ctx)

	orgID, err := s.deps.Directory.Resolve(ctx, roomID)
	if err != nil {
		l.Error().Err(err).Msg("directory resolution failed")
		return domain.Failure(domain.FailureDirectory, err.Error())
	}

	acting := actor
	if s.opts.Policy.ActingIdentity == ActAsService {
		acting = domain.ServiceActor(s.opts.Policy.ServiceID)
	}

	threadID, err := s.deps.Threads.LocateOrCreate(ctx, orgID, roomID, s.opts.ThreadName, s.opts.WhoCanPost, acting)
	switch {
	case err == nil:
	case errors.Is(err, thread.ErrPermissionDenied):
		l.Info().Str(log.FieldOrgID, orgID).Msg("thread permission missing, degrading")
		return domain.Degraded(domain.ReasonNoThreadPermission)
	case errors.Is(err, thread.ErrNoActingIdentity):
		return domain.Unauthorized(domain.LevelAuthenticatedUser)
	default:
		l.Error().Err(err).Str(log.FieldOrgID, orgID).Msg("thread locate failed")
		return domain.Failure(domain.FailurePublish, err.Error())
	}

	title, body := s.opts.Template.Render(req.TitleOverride, req.ContentOverride)

	postID, err := s.deps.Posts.Publish(ctx, threadID, title, body, acting)
	if err != nil {
		l.Error().Err(err).Str(log.FieldThreadID, threadID).Msg("post publish failed")
		return domain.Failure(domain.FailurePublish, err.Error())
	}

	return domain.Success(threadID, postID)
}

func (s *notifyServiceImpl) BroadcastJoin(ctx context.Context, roomID, message string) error {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return fmt.Errorf("missing room id")
	}
	if s.deps.Broadcaster == nil {
		return fmt.Errorf("broadcast is not configured")
	}
	if message == "" {
		message = s.opts.BroadcastText
	}

	data, err := json.Marshal(notify.NewUserJoinedMessage(message, time.Now()))
	if err != nil {
		return err
	}
	if err := s.deps.Broadcaster.Broadcast(ctx, roomID, data, ""); err != nil {
		return err
	}

	audit.LogWithDetail(ctx, audit.ActionBroadcastJoin, roomID, message, "join broadcast sent")
	return nil
}
