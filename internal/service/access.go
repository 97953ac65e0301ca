package service

import "github.com/Outercircl-dev/backend/internal/domain"

// Actor is the capacity in which a user acts on a participation.
type Actor int

const (
	ActorNone Actor = iota
	ActorSelf
	ActorHost
)

func (a Actor) String() string {
	switch a {
	case ActorSelf:
		return "self"
	case ActorHost:
		return "host"
	default:
		return "none"
	}
}

func CanAct(externalUserID string, p *domain.Participant, activity *domain.Activity) Actor {
	switch {
	case externalUserID == "":
		return ActorNone
	case p.ExternalUserID == externalUserID:
		return ActorSelf
	case activity.IsHost(externalUserID):
		return ActorHost
	default:
		return ActorNone
	}
}
