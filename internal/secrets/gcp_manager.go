package secrets

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	secretmanagerpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// GCPSecretManager resolves store API tokens from Google Cloud Secret
// Manager. Tokens live one per store under reverb-token-{store-code}.
type GCPSecretManager struct {
	client    *secretmanager.Client
	projectID string
	cache     map[string]cacheEntry
	cacheMu   sync.RWMutex
	cacheTTL  time.Duration
}

type cacheEntry struct {
	token     string
	expiresAt time.Time
}

// NewGCPSecretManager creates a new GCP Secret Manager client
func NewGCPSecretManager(ctx context.Context, projectID string) (*GCPSecretManager, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create secret manager client: %w", err)
	}

	return &GCPSecretManager{
		client:    client,
		projectID: projectID,
		cache:     make(map[string]cacheEntry),
		cacheTTL:  5 * time.Minute,
	}, nil
}

// Close closes the Secret Manager client
func (sm *GCPSecretManager) Close() error {
	if sm.client != nil {
		return sm.client.Close()
	}
	return nil
}

// secretName constructs the fully qualified secret name for a store
func (sm *GCPSecretManager) secretName(storeCode string) string {
	secretID := "reverb-token-" + sanitizeSecretID(strings.ToLower(storeCode))
	return fmt.Sprintf("projects/%s/secrets/%s", sm.projectID, secretID)
}

// GetStoreToken retrieves the Reverb API token for a store
func (sm *GCPSecretManager) GetStoreToken(ctx context.Context, storeCode string) (string, error) {
	name := sm.secretName(storeCode)

	sm.cacheMu.RLock()
	if entry, ok := sm.cache[name]; ok && time.Now().Before(entry.expiresAt) {
		sm.cacheMu.RUnlock()
		return entry.token, nil
	}
	sm.cacheMu.RUnlock()

	result, err := sm.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: name + "/versions/latest",
	})
	if err != nil {
		return "", fmt.Errorf("failed to access secret for store %s: %w", storeCode, err)
	}

	token := strings.TrimSpace(string(result.Payload.Data))

	sm.cacheMu.Lock()
	sm.cache[name] = cacheEntry{token: token, expiresAt: time.Now().Add(sm.cacheTTL)}
	sm.cacheMu.Unlock()

	return token, nil
}

var secretIDPattern = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// sanitizeSecretID strips characters GCP secret IDs do not allow
func sanitizeSecretID(s string) string {
	return secretIDPattern.ReplaceAllString(s, "-")
}
