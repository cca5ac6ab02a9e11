// Package session implements the listener's presence session: connection
// state, the once-per-session join announcement and the listener estimate.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/weiawesome/wes-io-live/pkg/log"
	"github.com/weiawesome/wes-io-live/pkg/notify"
)

const DefaultGatewayTimeout = 5 * time.Second

// Channel sends frames on the real-time connection.
type Channel interface {
	Send(ctx context.Context, data []byte) error
}

// Notifier calls the join notification gateway.
type Notifier interface {
	NotifyJoin(ctx context.Context, req notify.NotifyJoinRequest) (*notify.NotifyJoinResponse, error)
}

// Config configures a session.
type Config struct {
	RoomID          string
	JoinMessage     string
	TitleOverride   string
	ContentOverride string
	GatewayTimeout  time.Duration
	Logger          *zerolog.Logger
	Now             func() time.Time
}

// Diagnostics is the only state gateway and broadcast results may touch.
type Diagnostics struct {
	GatewayPending bool
	LastOutcome    *notify.NotifyJoinResponse
	LastError      string
	BroadcastError string
}

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	RoomID           string
	Status           Status
	Playing          bool
	HasAnnouncedJoin bool
	ListenerEstimate int
	TornDown         bool
	Diagnostics      Diagnostics
}

// Session is a single-actor state machine guarded by one mutex. Work it
// starts in the background is tracked so Wait can drain it.
type Session struct {
	cfg      Config
	channel  Channel
	notifier Notifier
	logger   zerolog.Logger

	mu               sync.Mutex
	status           Status
	playing          bool
	hasAnnouncedJoin bool
	listenerEstimate int
	tornDown         bool
	diag             Diagnostics
	onChange         func(Snapshot)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a disconnected session for cfg.RoomID.
func New(cfg Config, channel Channel, notifier Notifier) *Session {
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = DefaultGatewayTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.JoinMessage == "" {
		cfg.JoinMessage = notify.DefaultJoinMessage
	}
	logger := log.L()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		cfg:              cfg,
		channel:          channel,
		notifier:         notifier,
		logger:           logger.With().Str(log.FieldRoomID, cfg.RoomID).Logger(),
		status:           StatusDisconnected,
		listenerEstimate: 1,
		ctx:              ctx,
		cancel:           cancel,
	}
}

// OnChange registers fn to receive a snapshot after every state change.
// fn runs outside the session lock.
func (s *Session) OnChange(fn func(Snapshot)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Apply fires a connection trigger. Teardown is terminal: it cancels
// in-flight work and every later trigger fails with ErrTornDown.
func (s *Session) Apply(t Trigger) (Status, error) {
	s.mu.Lock()
	if s.tornDown {
		st := s.status
		s.mu.Unlock()
		return st, ErrTornDown
	}

	to, ok := next(s.status, t)
	if !ok {
		st := s.status
		s.mu.Unlock()
		return st, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, t, st)
	}

	from := s.status
	s.status = to
	if t == TriggerTeardown {
		s.tornDown = true
		s.cancel()
	}
	snap, fn := s.snapshotLocked(), s.onChange
	s.mu.Unlock()

	s.logger.Debug().Str("from", string(from)).Str("to", string(to)).Str("trigger", string(t)).Msg("session transition")
	if fn != nil {
		fn(snap)
	}
	return to, nil
}

// Teardown detaches the session from its room.
func (s *Session) Teardown() {
	_, _ = s.Apply(TriggerTeardown)
}

// StartPlayback marks the listener as actively consuming the stream. The
// first call in a session announces the join and reports true.
func (s *Session) StartPlayback() bool {
	s.mu.Lock()
	if s.tornDown {
		s.mu.Unlock()
		return false
	}
	s.playing = true
	if s.hasAnnouncedJoin {
		snap, fn := s.snapshotLocked(), s.onChange
		s.mu.Unlock()
		if fn != nil {
			fn(snap)
		}
		return false
	}

	s.hasAnnouncedJoin = true
	connected := s.status == StatusConnected
	s.diag.GatewayPending = true
	if connected {
		s.wg.Add(1)
	}
	s.wg.Add(1)
	ctx := s.ctx
	snap, fn := s.snapshotLocked(), s.onChange
	s.mu.Unlock()

	if fn != nil {
		fn(snap)
	}

	if connected {
		go s.broadcastJoin(ctx)
	}
	go s.notifyGateway(ctx)

	return true
}

// StopPlayback only clears the playing flag.
func (s *Session) StopPlayback() {
	s.mu.Lock()
	if s.tornDown {
		s.mu.Unlock()
		return
	}
	s.playing = false
	snap, fn := s.snapshotLocked(), s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}

// HandleMessage processes an inbound frame from the real-time channel.
// Every peer user_joined frame bumps the listener estimate by one.
func (s *Session) HandleMessage(data []byte) {
	var base notify.BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		s.logger.Debug().Err(err).Msg("ignoring malformed frame")
		return
	}
	if base.Type != notify.MsgTypeUserJoined {
		return
	}

	s.mu.Lock()
	if s.tornDown {
		s.mu.Unlock()
		return
	}
	s.listenerEstimate++
	snap, fn := s.snapshotLocked(), s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Status returns the connection status.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Wait blocks until background announcement work has finished.
func (s *Session) Wait() {
	s.wg.Wait()
}

func (s *Session) broadcastJoin(ctx context.Context) {
	defer s.wg.Done()

	data, err := json.Marshal(notify.NewUserJoinedMessage(s.cfg.JoinMessage, s.cfg.Now()))
	if err != nil {
		return
	}

	if err := s.channel.Send(ctx, data); err != nil {
		s.logger.Warn().Err(err).Msg("join broadcast failed")
		s.updateDiagnostics(func(d *Diagnostics) {
			d.BroadcastError = err.Error()
		})
		return
	}
	s.logger.Debug().Msg("join broadcast sent")
}

func (s *Session) notifyGateway(ctx context.Context) {
	defer s.wg.Done()

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()

	resp, err := s.notifier.NotifyJoin(callCtx, notify.NotifyJoinRequest{
		RoomID:          s.cfg.RoomID,
		TitleOverride:   s.cfg.TitleOverride,
		ContentOverride: s.cfg.ContentOverride,
	})

	if err == nil && resp == nil {
		err = errors.New("empty gateway response")
	}
	if err != nil {
		s.logger.Warn().Err(err).Msg("join notification failed")
	} else {
		evt := s.logger.Info().Bool("success", resp.Success).Bool("degraded", resp.Degraded)
		if resp.ThreadID != "" {
			evt = evt.Str(log.FieldThreadID, resp.ThreadID).Str(log.FieldPostID, resp.PostID)
		}
		evt.Msg("join notification completed")
	}

	s.updateDiagnostics(func(d *Diagnostics) {
		d.GatewayPending = false
		if err != nil {
			d.LastError = err.Error()
			return
		}
		d.LastOutcome = resp
		d.LastError = ""
	})
}

// updateDiagnostics applies fn unless the session was torn down, so late
// results never mutate a detached session.
func (s *Session) updateDiagnostics(fn func(*Diagnostics)) {
	s.mu.Lock()
	if s.tornDown {
		s.mu.Unlock()
		s.logger.Debug().Msg("discarding result after teardown")
		return
	}
	fn(&s.diag)
	snap, onChange := s.snapshotLocked(), s.onChange
	s.mu.Unlock()
	if onChange != nil {
		onChange(snap)
	}
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		RoomID:           s.cfg.RoomID,
		Status:           s.status,
		Playing:          s.playing,
		HasAnnouncedJoin: s.hasAnnouncedJoin,
		ListenerEstimate: s.listenerEstimate,
		TornDown:         s.tornDown,
		Diagnostics:      s.diag,
	}
}
