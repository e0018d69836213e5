package service

import (
	"errors"
	"fmt"
	"sync"

	"ecash-nwc-gateway/internal/core/domain"
	"ecash-nwc-gateway/internal/nostr"
)

// ErrSessionExists is returned when creating a session whose app key is
// already registered.
var ErrSessionExists = errors.New("session already exists")

// SessionRegistry holds the live sessions keyed by app pubkey.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]*domain.Session)}
}

// Create builds a session from params, generating the app key pair and the
// user secret when they are not supplied, and registers it.
func (r *SessionRegistry) Create(params domain.SessionParams) (*domain.Session, error) {
	if params.MintURL == "" || params.Relay == "" {
		return nil, fmt.Errorf("mint and relay are required")
	}
	for _, m := range params.Permissions {
		if !m.IsKnown() {
			return nil, fmt.Errorf("unknown permission %q", m)
		}
	}

	snap := domain.SessionSnapshot{
		AppPrivkey:  params.AppPrivkey,
		UserSecret:  params.UserSecret,
		Relay:       params.Relay,
		MintURL:     params.MintURL,
		Permissions: params.Permissions,
	}
	if len(snap.Permissions) == 0 {
		snap.Permissions = domain.KnownMethods
	}

	var err error
	if snap.AppPrivkey == "" {
		snap.AppPrivkey, snap.AppPubkey, err = nostr.GenerateKey()
	} else {
		snap.AppPubkey, err = nostr.PublicKey(snap.AppPrivkey)
	}
	if err != nil {
		return nil, fmt.Errorf("app key: %w", err)
	}
	if snap.UserSecret == "" {
		snap.UserSecret, snap.UserPubkey, err = nostr.GenerateKey()
	} else {
		snap.UserPubkey, err = nostr.PublicKey(snap.UserSecret)
	}
	if err != nil {
		return nil, fmt.Errorf("user secret: %w", err)
	}

	return r.add(snap)
}

// Restore registers a session loaded from storage.
func (r *SessionRegistry) Restore(snap domain.SessionSnapshot) (*domain.Session, error) {
	return r.add(snap)
}

// Lookup implements ports.SessionDirectory.
func (r *SessionRegistry) Lookup(appPubkey string) (*domain.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[appPubkey]
	return sess, ok
}

// All returns every registered session.
func (r *SessionRegistry) All() []*domain.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		out = append(out, sess)
	}
	return out
}

// Remove drops a session, e.g. after its relay gave up.
func (r *SessionRegistry) Remove(appPubkey string) {
	r.mu.Lock()
	delete(r.sessions, appPubkey)
	r.mu.Unlock()
}

func (r *SessionRegistry) add(snap domain.SessionSnapshot) (*domain.Session, error) {
	sess := domain.NewSession(snap, nostr.ConnectionString(snap.AppPubkey, snap.Relay, snap.UserSecret))

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[sess.AppPubkey]; ok {
		return nil, ErrSessionExists
	}
	r.sessions[sess.AppPubkey] = sess
	return sess, nil
}
