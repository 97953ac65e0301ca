// config/security_config.go
package config

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityAccess                      // Access token required
)

// EndpointSecurityConfig maps methods to their required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	// Health - Public
	"/grpc.health.v1.Health/Check": SecurityPublic,
	"/grpc.health.v1.Health/Watch": SecurityPublic,

	// ParticipationService - Access Protected
	"/outercircl.activities.v1.ParticipationService/Join":       SecurityAccess,
	"/outercircl.activities.v1.ParticipationService/Cancel":     SecurityAccess,
	"/outercircl.activities.v1.ParticipationService/Moderate":   SecurityAccess,
	"/outercircl.activities.v1.ParticipationService/ListRoster": SecurityAccess,
}

// GetSecurityLevel returns the security level for a given method
func GetSecurityLevel(method string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[method]; exists {
		return level
	}
	// Default to highest security for unknown endpoints
	return SecurityAccess
}
