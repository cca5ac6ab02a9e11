// Package identity turns request credentials into an acting identity.
package identity

import (
	"context"
	"net"
	"net/url"
	"strings"

	"github.com/weiawesome/wes-io-live/notify-service/internal/domain"
	"github.com/weiawesome/wes-io-live/pkg/jwt"
	"github.com/weiawesome/wes-io-live/pkg/log"
)

const DefaultDevTokenParam = "dev_token"

// TokenValidator is the slice of the platform the resolver needs.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (string, error)
}

// Config controls the development fallback. It is off unless DevMode is set.
type Config struct {
	DevMode       bool
	DevTokenParam string
	LocalHosts    []string
}

// Resolver resolves credentials in tiers: header token, then the local
// development referer token, then none.
type Resolver struct {
	tokens     TokenValidator
	devMode    bool
	devParam   string
	localHosts map[string]struct{}
}

// NewResolver creates a new identity resolver.
func NewResolver(tokens TokenValidator, cfg Config) *Resolver {
	param := cfg.DevTokenParam
	if param == "" {
		param = DefaultDevTokenParam
	}
	hosts := cfg.LocalHosts
	if len(hosts) == 0 {
		hosts = []string{"localhost", "127.0.0.1", "::1"}
	}
	set := make(map[string]struct{}, len(hosts))
	for _, h := range hosts {
		set[strings.ToLower(h)] = struct{}{}
	}
	return &Resolver{
		tokens:     tokens,
		devMode:    cfg.DevMode,
		devParam:   param,
		localHosts: set,
	}
}

// Resolve never fails; anything it cannot prove becomes ActorNone.
func (r *Resolver) Resolve(ctx context.Context, creds domain.Credentials) domain.ActorIdentity {
	l := log.Ctx(ctx)

	if creds.Token != "" {
		userID, err := r.tokens.ValidateToken(ctx, creds.Token)
		if err == nil && userID != "" {
			return domain.UserActor(userID)
		}
		l.Debug().Err(err).Msg("header token rejected")
		return domain.NoActor()
	}

	if !r.devMode || creds.Referer == "" {
		return domain.NoActor()
	}

	token, ok := r.devToken(creds.Referer)
	if !ok {
		return domain.NoActor()
	}

	if userID, err := r.tokens.ValidateToken(ctx, token); err == nil && userID != "" {
		return domain.UserActor(userID)
	}

	claims, err := jwt.ParseUnverified(token)
	if err != nil {
		l.Debug().Err(err).Msg("dev token could not be decoded")
		return domain.NoActor()
	}
	l.Warn().Str(log.FieldUserID, claims.SubjectID()).Msg("using unverified dev token subject")
	return domain.UserActor(claims.SubjectID())
}

// devToken extracts the token query parameter from a local referer.
func (r *Resolver) devToken(referer string) (string, bool) {
	u, err := url.Parse(referer)
	if err != nil || u.Host == "" {
		return "", false
	}
	if !r.isLocalHost(u.Hostname()) {
		return "", false
	}
	token := u.Query().Get(r.devParam)
	return token, token != ""
}

func (r *Resolver) isLocalHost(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if _, ok := r.localHosts[host]; ok {
		return true
	}
	if strings.HasSuffix(host, ".local") {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}
