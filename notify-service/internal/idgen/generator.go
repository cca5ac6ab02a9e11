// Package idgen produces identifiers for threads and posts.
package idgen

import (
	"fmt"
	"strings"
)

// Generator produces and validates identifiers of one scheme.
type Generator interface {
	Generate() (string, error)
	Validate(id string) (bool, string) // (valid, reason)
}

// Config selects the scheme and its tuning.
type Config struct {
	Kind           string `mapstructure:"kind"` // uuid, ulid, ksuid, nanoid, cuid2
	NanoIDSize     int    `mapstructure:"nanoid_size"`
	NanoIDAlphabet string `mapstructure:"nanoid_alphabet"`
	CUID2Length    int    `mapstructure:"cuid2_length"`
}

// New creates the generator named by cfg.Kind.
func New(cfg Config) (Generator, error) {
	switch strings.ToLower(cfg.Kind) {
	case "uuid", "":
		return uuidScheme(), nil
	case "ulid":
		return ulidScheme(), nil
	case "ksuid":
		return ksuidScheme(), nil
	case "nanoid":
		size, alphabet := cfg.NanoIDSize, cfg.NanoIDAlphabet
		if size == 0 {
			size = DefaultNanoIDSize
		}
		if alphabet == "" {
			alphabet = DefaultNanoIDAlphabet
		}
		return nanoidScheme(size, alphabet)
	case "cuid2":
		length := cfg.CUID2Length
		if length == 0 {
			length = DefaultCUID2Length
		}
		return cuid2Scheme(length)
	default:
		return nil, fmt.Errorf("unsupported id kind: %s", cfg.Kind)
	}
}

// Prefixed wraps a generator so every id carries a fixed prefix, e.g. "thr_".
type Prefixed struct {
	prefix string
	inner  Generator
}

// WithPrefix returns a generator emitting prefix+id.
func WithPrefix(prefix string, g Generator) *Prefixed {
	return &Prefixed{prefix: prefix, inner: g}
}

func (p *Prefixed) Generate() (string, error) {
	id, err := p.inner.Generate()
	if err != nil {
		return "", err
	}
	return p.prefix + id, nil
}

func (p *Prefixed) Validate(id string) (bool, string) {
	if !strings.HasPrefix(id, p.prefix) {
		return false, fmt.Sprintf("missing prefix %q", p.prefix)
	}
	return p.inner.Validate(strings.TrimPrefix(id, p.prefix))
}
