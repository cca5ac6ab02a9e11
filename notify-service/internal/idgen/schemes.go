package idgen

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/nrednav/cuid2"
	"github.com/oklog/ulid/v2"
	"github.com/segmentio/ksuid"
)

const (
	DefaultNanoIDSize     = 21
	DefaultNanoIDAlphabet = "_-0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	DefaultCUID2Length    = 24
)

// scheme is one id format: how to mint an id and how to recognise one.
type scheme struct {
	name  string
	mint  func() (string, error)
	check func(id string) error
}

func (s *scheme) Generate() (string, error) {
	id, err := s.mint()
	if err != nil {
		return "", fmt.Errorf("generate %s: %w", s.name, err)
	}
	return id, nil
}

func (s *scheme) Validate(id string) (bool, string) {
	if err := s.check(id); err != nil {
		return false, fmt.Sprintf("invalid %s: %v", s.name, err)
	}
	return true, ""
}

// uuidScheme mints random (v4) UUIDs.
func uuidScheme() *scheme {
	return &scheme{
		name: "uuid",
		mint: func() (string, error) {
			id, err := uuid.NewRandom()
			return id.String(), err
		},
		check: func(id string) error {
			parsed, err := uuid.Parse(id)
			if err != nil {
				return err
			}
			if parsed.Version() != 4 {
				return fmt.Errorf("version %d", parsed.Version())
			}
			return nil
		},
	}
}

// ulidScheme mints time-ordered ULIDs, so posts sort by creation.
func ulidScheme() *scheme {
	return &scheme{
		name: "ulid",
		mint: func() (string, error) { return ulid.Make().String(), nil },
		check: func(id string) error {
			_, err := ulid.ParseStrict(id)
			return err
		},
	}
}

func ksuidScheme() *scheme {
	return &scheme{
		name: "ksuid",
		mint: func() (string, error) {
			id, err := ksuid.NewRandom()
			return id.String(), err
		},
		check: func(id string) error {
			_, err := ksuid.Parse(id)
			return err
		},
	}
}

func nanoidScheme(size int, alphabet string) (*scheme, error) {
	if size < 1 || size > 256 {
		return nil, fmt.Errorf("nanoid size must be between 1 and 256, got %d", size)
	}
	if len(alphabet) < 2 {
		return nil, fmt.Errorf("nanoid alphabet needs at least 2 characters")
	}
	return &scheme{
		name: "nanoid",
		mint: func() (string, error) { return gonanoid.Generate(alphabet, size) },
		check: func(id string) error {
			if len(id) != size {
				return fmt.Errorf("length %d, want %d", len(id), size)
			}
			if i := strings.IndexFunc(id, func(r rune) bool { return !strings.ContainsRune(alphabet, r) }); i >= 0 {
				return fmt.Errorf("character %q outside alphabet", id[i])
			}
			return nil
		},
	}, nil
}

func cuid2Scheme(length int) (*scheme, error) {
	if length < 2 || length > 32 {
		return nil, fmt.Errorf("cuid2 length must be between 2 and 32, got %d", length)
	}
	gen, err := cuid2.Init(cuid2.WithLength(length))
	if err != nil {
		return nil, err
	}
	return &scheme{
		name: "cuid2",
		mint: func() (string, error) { return gen(), nil },
		check: func(id string) error {
			if len(id) != length {
				return fmt.Errorf("length %d, want %d", len(id), length)
			}
			if !cuid2.IsCuid(id) {
				return errors.New("not a cuid")
			}
			return nil
		},
	}, nil
}
