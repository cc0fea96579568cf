package store

import (
	"sort"

	"agent-console/internal/domain/message"
	"agent-console/internal/domain/session"
)

// List derives the ordered conversation list for one view: active sessions
// when hidden is false, archived when true. Recency descending, then a stable
// pinned-first pass so pinned sessions keep their relative recency order.
func (s *Store) List(hidden bool) []*session.Session {
	s.mu.RLock()
	out := make([]*session.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		if sess.Hidden == hidden {
			out = append(out, sess)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastMessageTime.After(out[j].LastMessageTime)
	})
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Pinned && !out[j].Pinned
	})
	return out
}

// NextFocus picks the session to focus after the current one is hidden: the
// longest-waiting visible conversation, i.e. the smallest lastMessageTime,
// excluding the one just hidden.
func (s *Store) NextFocus(exclude int64) (int64, bool) {
	visible := s.List(false)
	var pick *session.Session
	for _, sess := range visible {
		if sess.UserID() == exclude {
			continue
		}
		if pick == nil || sess.LastMessageTime.Before(pick.LastMessageTime) {
			pick = sess
		}
	}
	if pick == nil {
		return 0, false
	}
	return pick.UserID(), true
}

// Messages returns one conversation's messages sorted by sequence id
// ascending; messages without a server sequence (pending or failed) sort
// last.
func (s *Store) Messages(userID int64) []*message.Message {
	s.mu.RLock()
	sess, ok := s.sessions[userID]
	if !ok {
		s.mu.RUnlock()
		return nil
	}
	out := make([]*message.Message, 0, len(sess.Messages))
	for _, m := range sess.Messages {
		out = append(out, m)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EffectiveSeq() < out[j].EffectiveSeq()
	})
	return out
}
