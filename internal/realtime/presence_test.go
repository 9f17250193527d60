package realtime

import (
	"testing"

	"chat-server/internal/models"
)

func TestPresenceMarkOnlineIsIdempotentPerUser(t *testing.T) {
	registry := NewPresenceRegistry()

	registry.MarkOnline(models.Profile{ID: "u1", Username: "alice", Email: "alice@example.com"})
	registry.MarkOnline(models.Profile{ID: "u1", Username: "alice", Email: "alice@example.com"})

	snapshot := registry.Snapshot()
	if len(snapshot) != 1 {
		t.Fatalf("expected 1 presence entry, got %d", len(snapshot))
	}
	if snapshot[0].UserID != "u1" || snapshot[0].Username != "alice" {
		t.Errorf("unexpected entry: %+v", snapshot[0])
	}
}

func TestPresenceLastConnectionWinsOnProfile(t *testing.T) {
	registry := NewPresenceRegistry()

	registry.MarkOnline(models.Profile{ID: "u1", Username: "alice", Email: "old@example.com"})
	registry.MarkOnline(models.Profile{ID: "u1", Username: "alice", Email: "new@example.com"})

	snapshot := registry.Snapshot()
	if len(snapshot) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(snapshot))
	}
	if snapshot[0].Email != "new@example.com" {
		t.Errorf("expected last-connected profile to win, got %q", snapshot[0].Email)
	}
}

func TestPresenceRefCountsMultipleConnections(t *testing.T) {
	registry := NewPresenceRegistry()

	// Two tabs for the same user.
	registry.MarkOnline(models.Profile{ID: "u1", Username: "alice"})
	registry.MarkOnline(models.Profile{ID: "u1", Username: "alice"})

	if went := registry.MarkOffline("u1"); went {
		t.Error("user reported offline while a second connection remains")
	}
	if !registry.Online("u1") {
		t.Fatal("user should still be online after closing one of two connections")
	}

	if went := registry.MarkOffline("u1"); !went {
		t.Error("closing the last connection should report the user offline")
	}
	if registry.Online("u1") {
		t.Error("user should be offline after all connections closed")
	}
}

func TestPresenceMarkOfflineUnknownUserIsNoop(t *testing.T) {
	registry := NewPresenceRegistry()

	if went := registry.MarkOffline("ghost"); went {
		t.Error("unknown user cannot go offline")
	}
	if len(registry.Snapshot()) != 0 {
		t.Error("snapshot should be empty")
	}
}

func TestPresenceSnapshotContainsAllOnlineUsers(t *testing.T) {
	registry := NewPresenceRegistry()

	for _, u := range []models.Profile{
		{ID: "u1", Username: "alice", Email: "alice@example.com"},
		{ID: "u2", Username: "bob", Email: "bob@example.com"},
		{ID: "u3", Username: "carol", Email: "carol@example.com"},
	} {
		registry.MarkOnline(u)
	}

	snapshot := registry.Snapshot()
	if len(snapshot) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(snapshot))
	}

	byID := make(map[string]models.PresenceEntry)
	for _, entry := range snapshot {
		byID[entry.UserID] = entry
	}
	if byID["u2"].Username != "bob" || byID["u2"].Email != "bob@example.com" {
		t.Errorf("unexpected entry for u2: %+v", byID["u2"])
	}
}
