package store

import (
	"context"
)

// PreferenceStorer is the key-value persistence used for viewer preferences.
// Values are opaque JSON documents; keys are namespaced by profile.
type PreferenceStorer interface {
	GetPreference(ctx context.Context, profile, key string) ([]byte, error) // ErrPreferenceNotFound when absent
	PutPreference(ctx context.Context, profile, key string, value []byte) error
	DeletePreference(ctx context.Context, profile, key string) error
	Ping(ctx context.Context) error
	Close() error
}
