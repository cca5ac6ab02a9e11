package platform

import (
	"github.com/weiawesome/wes-io-live/pkg/jwt"
)

// JWTValidator validates platform user tokens signed with a shared secret.
type JWTValidator struct {
	manager *jwt.Manager
}

// NewJWTValidator wraps a jwt.Manager.
func NewJWTValidator(manager *jwt.Manager) *JWTValidator {
	return &JWTValidator{manager: manager}
}

func (v *JWTValidator) ValidateToken(token string) (string, error) {
	claims, err := v.manager.ValidateToken(token)
	if err != nil {
		return "", err
	}
	return claims.SubjectID(), nil
}
