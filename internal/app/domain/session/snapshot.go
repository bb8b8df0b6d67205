package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/FACorreiaa/go-estateportal/internal/app/models"
)

// KeyPrefix namespaces snapshot keys; the visitor id follows it.
const KeyPrefix = "portal.session:"

// SnapshotKey returns the storage key of a visitor's snapshot.
func SnapshotKey(visitorID string) string {
	return KeyPrefix + visitorID
}

// SnapshotStorage persists snapshot payloads across viewer restarts.
// Load reports found=false when nothing is stored under key.
type SnapshotStorage interface {
	Load(ctx context.Context, key string) (payload string, found bool, err error)
	Save(ctx context.Context, key, payload string) error
	Delete(ctx context.Context, key string) error
}

// snapshot is the persisted shape. Credentials never go here.
type snapshot struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

func encodeSnapshot(s models.Session) (string, error) {
	snap := snapshot{Role: string(s.Role)}
	if s.Identity != nil {
		snap.Email = s.Identity.Email
		snap.Name = s.Identity.DisplayName
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("encode session snapshot: %w", err)
	}
	return string(raw), nil
}

// decodeSnapshot turns a payload into a cached session.
func decodeSnapshot(payload string) (models.Session, error) {
	if strings.TrimSpace(payload) == "" {
		return models.Anonymous(), fmt.Errorf("empty snapshot: %w", models.ErrSnapshotAbsent)
	}
	var snap snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return models.Anonymous(), fmt.Errorf("decode session snapshot: %w", err)
	}
	role, ok := models.ParseRole(snap.Role)
	if !ok {
		return models.Anonymous(), fmt.Errorf("snapshot has unknown role %q", snap.Role)
	}
	if role == models.RoleNone {
		return models.Anonymous(), fmt.Errorf("snapshot without a role: %w", models.ErrSnapshotAbsent)
	}
	var identity *models.Identity
	if snap.Email != "" || snap.Name != "" {
		identity = &models.Identity{Email: snap.Email, DisplayName: snap.Name}
	}
	return models.NewAuthenticated(role, identity, models.SourceCached, zeroTime), nil
}
