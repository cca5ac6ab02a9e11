package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoomIDFromURL(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"https://host.example.com/app/exp_abc123/view", "exp_abc123", false},
		{"https://host.example.com/app/room42", "room42", false},
		{"https://host.example.com/embed/exp_xyz", "exp_xyz", false},
		{"https://host.example.com/embed/abcdefghijk123", "abcdefghijk123", false},
		{"https://host.example.com/embed/short?experienceId=exp_q", "exp_q", false},
		{"https://host.example.com/?experience=exp_r", "exp_r", false},
		{"https://host.example.com/embed/short-id", "", true},
		{"https://host.example.com/app/", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := RoomIDFromURL(tt.url)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoRoomID)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
