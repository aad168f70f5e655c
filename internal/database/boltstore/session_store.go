package boltstore

import (
	"encoding/json"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Session is an authenticated browser session keyed by an opaque token.
type Session struct {
	Token     string    `json:"token"`
	UserID    uint      `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its expiry.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SessionStore provides persistent storage for sessions.
type SessionStore struct {
	db *bolt.DB
}

// Save writes a session record, overwriting any existing one for the token.
func (s *SessionStore) Save(sess Session) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(BucketSessions)
		if bucket == nil {
			return nil
		}

		data, err := json.Marshal(sess)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(sess.Token), data)
	})
}

// Get returns the session for token, or (nil, nil) if absent or expired.
// Expired sessions are removed on read.
func (s *SessionStore) Get(token string) (*Session, error) {
	var sess *Session

	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(BucketSessions)
		if bucket == nil {
			return nil
		}

		data := bucket.Get([]byte(token))
		if data == nil {
			return nil
		}

		var rec Session
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		if rec.Expired(time.Now()) {
			return bucket.Delete([]byte(token))
		}
		sess = &rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Delete removes the session for token.
func (s *SessionStore) Delete(token string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(BucketSessions)
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(token))
	})
}

// DeleteExpired removes all sessions past their expiry. Returns the number
// removed.
func (s *SessionStore) DeleteExpired() (int, error) {
	removed := 0
	now := time.Now()

	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(BucketSessions)
		if bucket == nil {
			return nil
		}

		var stale [][]byte
		err := bucket.ForEach(func(k, v []byte) error {
			var rec Session
			if err := json.Unmarshal(v, &rec); err != nil {
				stale = append(stale, append([]byte(nil), k...))
				return nil
			}
			if rec.Expired(now) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, k := range stale {
			if err := bucket.Delete(k); err != nil {
				return err
			}
			removed++
		}
		return nil
	})

	return removed, err
}

// StartCleanupRoutine deletes expired sessions every interval until the
// returned stop function is called.
func (s *SessionStore) StartCleanupRoutine(interval time.Duration) func() {
	stop := make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.DeleteExpired()
			case <-stop:
				return
			}
		}
	}()

	return func() { close(stop) }
}
