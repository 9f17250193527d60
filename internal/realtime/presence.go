package realtime

import "chat-server/internal/models"

// PresenceRegistry tracks which users have at least one open connection.
// Entries are reference-counted per user so that closing one of several
// connections does not mark the user offline. Not safe for concurrent use;
// the gateway mutates it only from its run loop.
type PresenceRegistry struct {
	entries map[string]*presenceEntry
}

type presenceEntry struct {
	profile  models.PresenceEntry
	sessions int
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{entries: make(map[string]*presenceEntry)}
}

// MarkOnline upserts the user's presence entry and bumps its session count.
// The profile overwrites any existing one, last connection wins.
func (r *PresenceRegistry) MarkOnline(profile models.Profile) {
	entry, ok := r.entries[profile.ID]
	if !ok {
		entry = &presenceEntry{}
		r.entries[profile.ID] = entry
	}
	entry.profile = models.PresenceEntry{
		UserID:   profile.ID,
		Username: profile.Username,
		Email:    profile.Email,
	}
	entry.sessions++
}

// MarkOffline drops one session for the user and removes the entry when no
// sessions remain. Returns true if the user went fully offline.
func (r *PresenceRegistry) MarkOffline(userID string) bool {
	entry, ok := r.entries[userID]
	if !ok {
		return false
	}
	entry.sessions--
	if entry.sessions <= 0 {
		delete(r.entries, userID)
		return true
	}
	return false
}

// Snapshot returns all currently-online profiles in no particular order.
func (r *PresenceRegistry) Snapshot() []models.PresenceEntry {
	snapshot := make([]models.PresenceEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		snapshot = append(snapshot, entry.profile)
	}
	return snapshot
}

func (r *PresenceRegistry) Online(userID string) bool {
	_, ok := r.entries[userID]
	return ok
}
