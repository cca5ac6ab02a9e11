package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/weiawesome/wes-io-live/listener-client/internal/config"
	"github.com/weiawesome/wes-io-live/listener-client/internal/gatewayclient"
	"github.com/weiawesome/wes-io-live/listener-client/internal/realtime"
	"github.com/weiawesome/wes-io-live/listener-client/internal/session"
	pkglog "github.com/weiawesome/wes-io-live/pkg/log"
)

func newListenCmd() *cobra.Command {
	var (
		noPlay    bool
		exitAfter time.Duration
	)

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Attach to a room and start listening",
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := config.NewViper()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			for key, flag := range map[string]string{
				"room_id":          "room",
				"page_url":         "page-url",
				"token":            "token",
				"gateway.url":      "gateway-url",
				"gateway.timeout":  "gateway-timeout",
				"presence.url":     "ws-url",
				"play_after":       "play-after",
				"join_message":     "message",
				"title_override":   "title",
				"content_override": "content",
				"log.level":        "log-level",
			} {
				if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
					return err
				}
			}
			cfg, err := config.Decode(v)
			if err != nil {
				return err
			}

			cfg.Log.Output = cmd.ErrOrStderr()
			pkglog.Init(cfg.Log)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if exitAfter > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, exitAfter)
				defer cancel()
			}

			return runListener(ctx, cmd.OutOrStdout(), cfg, !noPlay)
		},
	}

	flags := cmd.Flags()
	flags.String("room", "", "room id to attach to")
	flags.String("page-url", "", "embedded page url to discover the room id from")
	flags.String("token", "", "platform user token")
	flags.String("gateway-url", "", "notify gateway base url")
	flags.String("gateway-timeout", "", "bound on the join notification call")
	flags.String("ws-url", "", "presence websocket url")
	flags.String("play-after", "", "delay before playback starts")
	flags.String("message", "", "text of the join broadcast")
	flags.String("title", "", "post title override")
	flags.String("content", "", "post content override")
	flags.String("log-level", "", "log level")
	flags.BoolVar(&noPlay, "no-play", false, "attach without starting playback")
	flags.DurationVar(&exitAfter, "exit-after", 0, "detach after this long (0 = until interrupted)")

	return cmd
}

func runListener(ctx context.Context, out io.Writer, cfg *config.Config, play bool) error {
	roomID := cfg.RoomID
	if roomID == "" && cfg.PageURL != "" {
		id, err := session.RoomIDFromURL(cfg.PageURL)
		if err != nil {
			return fmt.Errorf("discover room id: %w", err)
		}
		roomID = id
	}
	if roomID == "" {
		return fmt.Errorf("a room id is required: pass --room or --page-url")
	}

	gateway := gatewayclient.New(cfg.Gateway.URL,
		gatewayclient.WithToken(cfg.Token),
		gatewayclient.WithReferer(cfg.PageURL),
	)
	channel := realtime.NewClient(realtime.Config{
		URL:               cfg.Presence.URL,
		RoomID:            roomID,
		Token:             cfg.Token,
		ReconnectDelay:    cfg.Presence.ReconnectDelay,
		MaxReconnectDelay: cfg.Presence.MaxReconnectDelay,
	})
	sess := session.New(session.Config{
		RoomID:          roomID,
		JoinMessage:     cfg.JoinMessage,
		TitleOverride:   cfg.TitleOverride,
		ContentOverride: cfg.ContentOverride,
		GatewayTimeout:  cfg.Gateway.Timeout,
	}, channel, gateway)

	status := newStatusLine(out)
	sess.OnChange(status.render)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		channel.Run(ctx, sess)
	}()

	if play {
		select {
		case <-ctx.Done():
		case <-time.After(cfg.PlayAfter):
			sess.StartPlayback()
		}
	}

	<-ctx.Done()
	sess.Teardown()
	wg.Wait()

	drained := make(chan struct{})
	go func() {
		sess.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(cfg.Gateway.Timeout + time.Second):
	}

	status.final(sess.Snapshot())
	return nil
}

// statusLine prints the connection status and listener estimate whenever
// either changes, plus the outcome of the join notification.
type statusLine struct {
	mu   sync.Mutex
	out  io.Writer
	last string
}

func newStatusLine(out io.Writer) *statusLine {
	return &statusLine{out: out}
}

func (s *statusLine) render(snap session.Snapshot) {
	line := fmt.Sprintf("[%s] room=%s listeners=%d playing=%t", snap.Status, snap.RoomID, snap.ListenerEstimate, snap.Playing)
	if snap.Diagnostics.GatewayPending {
		line += " notify=pending"
	} else if o := snap.Diagnostics.LastOutcome; o != nil {
		switch {
		case o.Degraded:
			line += " notify=degraded(" + o.Reason + ")"
		case o.Success:
			line += " notify=posted"
		default:
			line += " notify=failed(" + o.Error + ")"
		}
	} else if snap.Diagnostics.LastError != "" {
		line += " notify=error"
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if line == s.last {
		return
	}
	s.last = line
	fmt.Fprintln(s.out, line)
}

func (s *statusLine) final(snap session.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "detached: announced=%t listeners=%d\n", snap.HasAnnouncedJoin, snap.ListenerEstimate)
}
