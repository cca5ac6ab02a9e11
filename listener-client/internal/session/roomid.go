package session

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

var (
	ErrNoRoomID = errors.New("no room id in url")

	alnumID = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
)

// RoomIDFromURL discovers the room id of an embedded page. It tries, in
// order: the segment after /app/, the first path segment that looks like an
// id ("exp_" prefix, or alphanumeric and longer than 10), then the
// experienceId and experience query parameters.
func RoomIDFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	parts := strings.Split(u.Path, "/")
	for i, part := range parts {
		if part == "app" && i+1 < len(parts) && parts[i+1] != "" {
			return parts[i+1], nil
		}
	}

	for _, part := range parts {
		if strings.HasPrefix(part, "exp_") || (len(part) > 10 && alnumID.MatchString(part)) {
			return part, nil
		}
	}

	q := u.Query()
	if id := q.Get("experienceId"); id != "" {
		return id, nil
	}
	if id := q.Get("experience"); id != "" {
		return id, nil
	}

	return "", ErrNoRoomID
}
