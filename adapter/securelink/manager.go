package securelink

import (
	"errors"
	"time"

	urlkit "github.com/goliatone/go-urlkit/securelink"
	"github.com/inchronicle/go-stories/pkg/types"
)

var errNotConfigured = errors.New("securelink manager not configured")

// Manager bridges go-urlkit securelink managers to the types.SecureLinkManager
// interface consumed by the registration, password reset, and workspace
// invitation commands.
type Manager struct {
	links urlkit.Manager
}

// NewManager builds the adapter from a configurator, typically the
// application's secure links config section.
func NewManager(cfg types.SecureLinkConfigurator) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("securelink configurator required")
	}
	links, err := urlkit.NewManagerFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &Manager{links: links}, nil
}

// WrapManager adapts an already-constructed go-urlkit manager.
func WrapManager(links urlkit.Manager) *Manager {
	if links == nil {
		return nil
	}
	return &Manager{links: links}
}

func (m *Manager) ready() bool {
	return m != nil && m.links != nil
}

// Generate mints a signed link for the named route.
func (m *Manager) Generate(route string, payloads ...types.SecureLinkPayload) (string, error) {
	if !m.ready() {
		return "", errNotConfigured
	}
	return m.links.Generate(route, toPayloads(payloads)...)
}

// Validate verifies a token's signature and returns the embedded claims.
func (m *Manager) Validate(token string) (map[string]any, error) {
	if !m.ready() {
		return nil, errNotConfigured
	}
	return m.links.Validate(token)
}

// GetAndValidate pulls a token via the extractor function and validates it.
func (m *Manager) GetAndValidate(fn func(string) string) (types.SecureLinkPayload, error) {
	if !m.ready() {
		return nil, errNotConfigured
	}
	payload, err := m.links.GetAndValidate(fn)
	if err != nil {
		return nil, err
	}
	return types.SecureLinkPayload(payload), nil
}

// GetExpiration reports how long minted links stay valid.
func (m *Manager) GetExpiration() time.Duration {
	if !m.ready() {
		return 0
	}
	return m.links.GetExpiration()
}

func toPayloads(payloads []types.SecureLinkPayload) []urlkit.Payload {
	if len(payloads) == 0 {
		return nil
	}
	out := make([]urlkit.Payload, 0, len(payloads))
	for _, p := range payloads {
		out = append(out, urlkit.Payload(p))
	}
	return out
}
