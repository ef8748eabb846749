package matchmaker

import (
	"testing"
	"time"
)

func TestEnqueueAtMostOnce(t *testing.T) {
	m := New(0, time.Minute)
	e := QueueEntry{SessionID: "s1", UserID: "u1", Rating: 1200, JoinedAt: time.Now()}
	if err := m.Enqueue(e); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	if err := m.Enqueue(e); err != ErrAlreadyQueued {
		t.Fatalf("expected ErrAlreadyQueued, got %v", err)
	}
}

func TestMatchForPairsOldestFirst(t *testing.T) {
	m := New(0, time.Minute)
	now := time.Now()
	_ = m.Enqueue(QueueEntry{SessionID: "a", Rating: 1200, JoinedAt: now})
	_ = m.Enqueue(QueueEntry{SessionID: "b", Rating: 1200, JoinedAt: now.Add(time.Second)})
	_ = m.Enqueue(QueueEntry{SessionID: "c", Rating: 1200, JoinedAt: now.Add(2 * time.Second)})

	self, opponent, ok := m.MatchFor("c")
	if !ok {
		t.Fatal("expected a match")
	}
	if self.SessionID != "c" || opponent.SessionID != "a" {
		t.Fatalf("expected c matched with a (oldest), got %s/%s", self.SessionID, opponent.SessionID)
	}
	if m.IsQueued("a") || m.IsQueued("c") {
		t.Fatal("matched sessions should be removed from queue")
	}
	if !m.IsQueued("b") {
		t.Fatal("unmatched session should remain queued")
	}
}

func TestMatchForRespectsRatingWindow(t *testing.T) {
	m := New(50, time.Minute)
	now := time.Now()
	_ = m.Enqueue(QueueEntry{SessionID: "a", Rating: 1000, JoinedAt: now})
	_ = m.Enqueue(QueueEntry{SessionID: "b", Rating: 1500, JoinedAt: now.Add(time.Second)})

	_, _, ok := m.MatchFor("b")
	if ok {
		t.Fatal("expected no match outside rating window")
	}
}

func TestChallengeAcceptConsumesOnce(t *testing.T) {
	m := New(0, time.Minute)
	now := time.Now()
	err := m.Issue(Challenge{
		ChallengerSessionID: "s1",
		TargetSessionID:     "s2",
	}, now)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := m.Accept("s1", "s2"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := m.Accept("s1", "s2"); err != ErrNoSuchChallenge {
		t.Fatalf("expected ErrNoSuchChallenge on second accept, got %v", err)
	}
}

func TestChallengeRejectsSelfAndDuplicate(t *testing.T) {
	m := New(0, time.Minute)
	now := time.Now()
	if err := m.Issue(Challenge{ChallengerSessionID: "s1", TargetSessionID: "s1"}, now); err != ErrSelfChallenge {
		t.Fatalf("expected ErrSelfChallenge, got %v", err)
	}
	if err := m.Issue(Challenge{ChallengerSessionID: "s1", TargetSessionID: "s2"}, now); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := m.Issue(Challenge{ChallengerSessionID: "s1", TargetSessionID: "s3"}, now); err != ErrDuplicateChallenge {
		t.Fatalf("expected ErrDuplicateChallenge, got %v", err)
	}
}

func TestExpireDue(t *testing.T) {
	m := New(0, time.Millisecond)
	now := time.Now()
	_ = m.Issue(Challenge{ChallengerSessionID: "s1", TargetSessionID: "s2"}, now)

	expired := m.ExpireDue(now.Add(time.Second))
	if len(expired) != 1 {
		t.Fatalf("expected 1 expired challenge, got %d", len(expired))
	}
	if _, err := m.Accept("s1", "s2"); err != ErrNoSuchChallenge {
		t.Fatalf("expired challenge should be gone, got %v", err)
	}
}
