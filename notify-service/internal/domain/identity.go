package domain

// ActorKind tags who a platform call is made on behalf of.
type ActorKind string

const (
	ActorUser    ActorKind = "user"
	ActorService ActorKind = "service"
	ActorNone    ActorKind = "none"
)

// ActorIdentity is the identity a request resolved to. Exactly one of
// UserID / ServiceID is set, matching Kind; both are empty for ActorNone.
type ActorIdentity struct {
	Kind      ActorKind
	UserID    string
	ServiceID string
}

// UserActor returns an identity acting as userID.
func UserActor(userID string) ActorIdentity {
	return ActorIdentity{Kind: ActorUser, UserID: userID}
}

// ServiceActor returns an identity acting as the service account serviceID.
func ServiceActor(serviceID string) ActorIdentity {
	return ActorIdentity{Kind: ActorService, ServiceID: serviceID}
}

// NoActor returns the unauthenticated identity.
func NoActor() ActorIdentity {
	return ActorIdentity{Kind: ActorNone}
}

// IsNone reports whether the identity carries no actor.
func (a ActorIdentity) IsNone() bool {
	return a.Kind == "" || a.Kind == ActorNone
}

// ID returns the user or service id, whichever applies.
func (a ActorIdentity) ID() string {
	switch a.Kind {
	case ActorUser:
		return a.UserID
	case ActorService:
		return a.ServiceID
	default:
		return ""
	}
}

// Credentials is the raw credential material extracted from a request.
type Credentials struct {
	Token   string
	Referer string
}
