package domain

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOutcomeHTTPStatus(t *testing.T) {
	tests := []struct {
		outcome Outcome
		status  int
		label   string
	}{
		{Success("t1", "p1"), http.StatusOK, "success"},
		{Degraded(ReasonNoThreadPermission), http.StatusOK, "degraded"},
		{Unauthorized(LevelAuthenticatedUser), http.StatusUnauthorized, "unauthorized"},
		{Failure(FailureInput, "missing room id"), http.StatusBadRequest, "failure:InputError"},
		{Failure(FailureAuth, "x"), http.StatusUnauthorized, "failure:AuthError"},
		{Failure(FailureDirectory, "x"), http.StatusInternalServerError, "failure:DirectoryError"},
		{Failure(FailurePublish, "x"), http.StatusInternalServerError, "failure:PublishError"},
		{Failure(FailureInternal, "x"), http.StatusInternalServerError, "failure:Internal"},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.outcome.HTTPStatus())
			assert.Equal(t, tt.label, tt.outcome.Label())
		})
	}
}

func TestActorIdentity(t *testing.T) {
	assert.True(t, ActorIdentity{}.IsNone())
	assert.True(t, NoActor().IsNone())
	assert.Equal(t, "u1", UserActor("u1").ID())
	assert.Equal(t, "svc", ServiceActor("svc").ID())
	assert.Empty(t, NoActor().ID())
}
