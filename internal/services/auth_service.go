package services

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/authorizerdev/authorizer-go"
	"github.com/google/uuid"
	"github.com/localnerve/actudb/internal/config"
	"github.com/localnerve/actudb/internal/models"
	"github.com/localnerve/actudb/internal/types"
	"github.com/localnerve/actudb/internal/utils"
)

// Actor is the resolved identity performing an engine operation.
// Authorization and tenant scoping happen against this value; the engine
// never consults ambient session state.
type Actor struct {
	UserID   uuid.UUID `json:"userId"`
	TenantID uuid.UUID `json:"tenantId"`
	Role     string    `json:"role"`
}

var (
	authClient *authorizer.AuthorizerClient
	authOnce   sync.Once
)

// IsAuthorizerInitialized returns true if the Authorizer client is initialized
func IsAuthorizerInitialized() bool {
	return authClient != nil
}

// InitAuthorizer initializes the Authorizer client (singleton pattern)
func InitAuthorizer(cfg *config.Config, requestProtocol, requestHost string) error {
	var initErr error

	authOnce.Do(func() {
		// Ping the Authorizer service first
		if err := utils.PingAuthorizer(cfg.AuthzURL); err != nil {
			initErr = fmt.Errorf("authorizer ping failed: %w", err)
			return
		}

		redirectURL := fmt.Sprintf("%s://%s", requestProtocol, requestHost)
		log.Printf("Initializing Authorizer: authorizerURL=%s, clientID=%s, redirectURL=%s",
			cfg.AuthzURL, cfg.AuthzClientID, redirectURL)

		var err error
		authClient, err = authorizer.NewAuthorizerClient(cfg.AuthzClientID, cfg.AuthzURL, redirectURL, nil)
		if err != nil {
			initErr = fmt.Errorf("failed to create authorizer client: %w", err)
			return
		}
	})

	return initErr
}

// ValidateSession validates a session cookie for the given roles
func ValidateSession(cookie string, roles []string) (map[string]interface{}, error) {
	if authClient == nil {
		return nil, fmt.Errorf("authorizer client not initialized")
	}

	// Convert roles to []*string
	rolesPtrs := make([]*string, len(roles))
	for i := range roles {
		rolesPtrs[i] = &roles[i]
	}

	// Validate session using the authorizer-go SDK
	res, err := authClient.ValidateSession(&authorizer.ValidateSessionInput{
		Cookie: cookie,
		Roles:  rolesPtrs,
	})
	if err != nil {
		return nil, fmt.Errorf("session validation failed: %w", err)
	}

	// Check if session is valid
	if res == nil || !res.IsValid {
		return nil, fmt.Errorf("session is not valid")
	}

	// Return user data
	return map[string]interface{}{
		"is_valid": res.IsValid,
		"user":     res.User,
	}, nil
}

// authUser is the slice of the authorizer user profile this service reads.
// Decoded through JSON tags so it tracks the wire shape, not SDK structs.
type authUser struct {
	ID      string                 `json:"id"`
	Email   string                 `json:"email"`
	Roles   []string               `json:"roles"`
	AppData map[string]interface{} `json:"app_data"`
}

// ResolveActor validates the session cookie against the given roles and
// resolves it to an Actor. The tenant id comes from the authorizer user's
// app_data; users without one cannot act on any table.
func ResolveActor(cookie string, roles []string) (Actor, error) {
	data, err := ValidateSession(cookie, roles)
	if err != nil {
		return Actor{}, err
	}

	raw, err := json.Marshal(data["user"])
	if err != nil {
		return Actor{}, fmt.Errorf("failed to read authorizer user: %w", err)
	}
	var user authUser
	if err := json.Unmarshal(raw, &user); err != nil {
		return Actor{}, fmt.Errorf("failed to decode authorizer user: %w", err)
	}

	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return Actor{}, fmt.Errorf("authorizer user id is not a UUID: %w", err)
	}

	tenantRaw, _ := user.AppData["tenant_id"].(string)
	tenantID, err := uuid.Parse(tenantRaw)
	if err != nil {
		return Actor{}, fmt.Errorf("authorizer user has no tenant assignment")
	}

	return Actor{UserID: userID, TenantID: tenantID, Role: pickRole(user.Roles)}, nil
}

// pickRole reduces the authorizer role list to the strongest engine role.
func pickRole(roles []string) string {
	role := models.RoleViewer
	for _, r := range roles {
		switch r {
		case models.RoleAdmin:
			return models.RoleAdmin
		case models.RoleAnalyst:
			role = models.RoleAnalyst
		}
	}
	return role
}

// requireRole checks the actor's role against the allowed set.
func requireRole(actor Actor, roles ...string) error {
	for _, r := range roles {
		if actor.Role == r {
			return nil
		}
	}
	return types.NewForbidden("role %q is not permitted to perform this operation", actor.Role)
}
