package matchmaker

import "time"

// Issue records a new challenge from challenger to target, expiring after
// the configured TTL. Rejects self-challenges and a second outstanding
// challenge from the same challenger (spec §4.6).
func (m *Matchmaker) Issue(challenger Challenge, now time.Time) error {
	if challenger.ChallengerSessionID == challenger.TargetSessionID {
		return ErrSelfChallenge
	}
	if _, exists := m.challenges[challenger.ChallengerSessionID]; exists {
		return ErrDuplicateChallenge
	}
	challenger.ExpiresAt = now.Add(m.challengeTTL)
	m.challenges[challenger.ChallengerSessionID] = &challenger
	return nil
}

// lookup finds the challenge keyed by (challengerSessionID, targetSessionID).
func (m *Matchmaker) lookup(challengerSessionID, targetSessionID string) (*Challenge, bool) {
	c, ok := m.challenges[challengerSessionID]
	if !ok || c.TargetSessionID != targetSessionID {
		return nil, false
	}
	return c, true
}

// Accept atomically consumes the challenge keyed by (challengerSessionID,
// targetSessionID) and returns it.
func (m *Matchmaker) Accept(challengerSessionID, targetSessionID string) (*Challenge, error) {
	c, ok := m.lookup(challengerSessionID, targetSessionID)
	if !ok {
		return nil, ErrNoSuchChallenge
	}
	delete(m.challenges, challengerSessionID)
	return c, nil
}

// Decline atomically consumes the challenge keyed by (challengerSessionID,
// targetSessionID) and returns it. Idempotent: declining an already-consumed
// key is a no-op that returns ErrNoSuchChallenge, matching spec §8's
// round-trip law ("DECLINE_CHALLENGE followed by another decline ... is a
// no-op").
func (m *Matchmaker) Decline(challengerSessionID, targetSessionID string) (*Challenge, error) {
	c, ok := m.lookup(challengerSessionID, targetSessionID)
	if !ok {
		return nil, ErrNoSuchChallenge
	}
	delete(m.challenges, challengerSessionID)
	return c, nil
}

// ExpireDue removes and returns every challenge whose TTL has elapsed as of
// now, for the coordinator's periodic sweep to notify challengers of.
func (m *Matchmaker) ExpireDue(now time.Time) []*Challenge {
	var expired []*Challenge
	for key, c := range m.challenges {
		if !now.Before(c.ExpiresAt) {
			expired = append(expired, c)
			delete(m.challenges, key)
		}
	}
	return expired
}

// HasOutstandingChallenge reports whether the given challenger session has
// a still-pending challenge, whatever its target.
func (m *Matchmaker) HasOutstandingChallenge(challengerSessionID string) bool {
	_, ok := m.challenges[challengerSessionID]
	return ok
}

// RemoveChallengesInvolving drops any challenge where sessionID is either
// the challenger or the target — used on disconnect (spec §4.2 close
// ordering).
func (m *Matchmaker) RemoveChallengesInvolving(sessionID string) {
	delete(m.challenges, sessionID)
	for key, c := range m.challenges {
		if c.TargetSessionID == sessionID {
			delete(m.challenges, key)
		}
	}
}
