package history

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppendAndRecent(t *testing.T) {
	s := openTestStore(t)

	for i := 0; i < 3; i++ {
		payload := json.RawMessage(fmt.Sprintf(`{"delta":"chunk-%d"}`, i))
		if err := s.Append("s1", "stream.text_delta", payload); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	if err := s.Append("s2", "agent.idle", nil); err != nil {
		t.Fatalf("append other session: %v", err)
	}

	got, err := s.Recent("s1", 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d entries, want 3", len(got))
	}
	for i, e := range got {
		if e.SessionID != "s1" {
			t.Errorf("entry %d session = %q", i, e.SessionID)
		}
		want := fmt.Sprintf(`{"delta":"chunk-%d"}`, i)
		if string(e.Payload) != want {
			t.Errorf("entry %d payload = %s, want %s", i, e.Payload, want)
		}
	}
}

func TestRecentHonorsLimitOldestFirst(t *testing.T) {
	s := openTestStore(t)
	for i := 0; i < 10; i++ {
		if err := s.Append("s1", fmt.Sprintf("ev-%d", i), nil); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	got, err := s.Recent("s1", 4)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 4 {
		t.Fatalf("got %d entries, want 4", len(got))
	}
	// The newest four, returned oldest first.
	for i, e := range got {
		want := fmt.Sprintf("ev-%d", 6+i)
		if e.Event != want {
			t.Errorf("entry %d event = %q, want %q", i, e.Event, want)
		}
	}
}

func TestSessions(t *testing.T) {
	s := openTestStore(t)
	s.Append("a", "agent.idle", nil)
	s.Append("b", "agent.idle", nil)
	s.Append("a", "agent.working", nil) // a has the newest activity

	got, err := s.Sessions()
	if err != nil {
		t.Fatalf("sessions: %v", err)
	}
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("sessions = %v, want [a b]", got)
	}
}

func TestPrune(t *testing.T) {
	s := openTestStore(t)
	s.Append("s1", "agent.idle", nil)

	n, err := s.Prune(time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 0 {
		t.Errorf("pruned %d fresh entries, want 0", n)
	}

	n, err = s.Prune(time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned %d, want 1", n)
	}
}
