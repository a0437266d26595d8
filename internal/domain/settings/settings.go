package settings

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// SnapshotKey is the persistence key holding the model settings document.
const SnapshotKey = "settings"

// Persistence is the slice of the key-value snapshot service this package
// needs.
type Persistence interface {
	Save(key string, value []byte) error
	Load(key string) ([]byte, bool, error)
}

// Settings is the user-editable model configuration: the ordered target
// model list, the endpoint every model is reached through, the credential,
// and the column layout preference.
type Settings struct {
	Models  []string `json:"models"`
	BaseURL string   `json:"base_url"`
	APIKey  string   `json:"api_key"`
	Layout  int      `json:"layout"`
}

// Configured reports whether an endpoint and credential are present. The
// dispatcher refuses to contact any model without both.
func (s Settings) Configured() bool {
	return strings.TrimSpace(s.BaseURL) != "" && strings.TrimSpace(s.APIKey) != ""
}

func (s Settings) clone() Settings {
	clone := s
	clone.Models = append([]string(nil), s.Models...)
	return clone
}

// Service guards the current settings and persists every update. Reads
// return a copy, so a dispatch holds a stable snapshot of the target model
// set even while the user edits configuration.
type Service struct {
	mu          sync.RWMutex
	current     Settings
	persistence Persistence
	log         zerolog.Logger
}

// Open loads persisted settings, falling back to the provided defaults
// when no snapshot exists yet.
func Open(persistence Persistence, defaults Settings, log zerolog.Logger) (*Service, error) {
	svc := &Service{
		current:     defaults.clone(),
		persistence: persistence,
		log:         log.With().Str("component", "settings").Logger(),
	}

	data, ok, err := persistence.Load(SnapshotKey)
	if err != nil {
		return nil, fmt.Errorf("load settings snapshot: %w", err)
	}
	if ok {
		var stored Settings
		if err := json.Unmarshal(data, &stored); err != nil {
			return nil, fmt.Errorf("decode settings snapshot: %w", err)
		}
		svc.current = stored
	}
	return svc, nil
}

// Get returns a copy of the current settings.
func (svc *Service) Get() Settings {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	return svc.current.clone()
}

// Update replaces the settings and persists them. Empty model entries are
// dropped; the order of the rest is preserved, since it is the order
// responses are laid out in.
func (svc *Service) Update(next Settings) (Settings, error) {
	models := make([]string, 0, len(next.Models))
	for _, m := range next.Models {
		if m = strings.TrimSpace(m); m != "" {
			models = append(models, m)
		}
	}
	next.Models = models
	if next.Layout <= 0 {
		next.Layout = 3
	}

	data, err := json.Marshal(next)
	if err != nil {
		return Settings{}, fmt.Errorf("encode settings: %w", err)
	}

	svc.mu.Lock()
	svc.current = next.clone()
	svc.mu.Unlock()

	if err := svc.persistence.Save(SnapshotKey, data); err != nil {
		svc.log.Error().Err(err).Msg("persist settings snapshot")
	}
	return next.clone(), nil
}
