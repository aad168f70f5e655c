package boltstore

import (
	"encoding/json"
	"time"

	"bonlog/internal/loginlimit"

	bolt "go.etcd.io/bbolt"
)

// AttemptStore persists login attempt counters. It implements
// loginlimit.Store.
type AttemptStore struct {
	db *bolt.DB
}

// Get returns the attempt record for key, or (nil, nil) if absent.
func (s *AttemptStore) Get(key string) (*loginlimit.Attempt, error) {
	var a *loginlimit.Attempt

	err := s.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(BucketLoginAttempts)
		if bucket == nil {
			return nil
		}

		data := bucket.Get([]byte(key))
		if data == nil {
			return nil
		}

		var rec loginlimit.Attempt
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		a = &rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Put writes the attempt record for key.
func (s *AttemptStore) Put(key string, a loginlimit.Attempt) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(BucketLoginAttempts)
		if bucket == nil {
			return nil
		}

		data, err := json.Marshal(a)
		if err != nil {
			return err
		}
		return bucket.Put([]byte(key), data)
	})
}

// Delete removes the attempt record for key. Deleting an absent key is a
// no-op.
func (s *AttemptStore) Delete(key string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(BucketLoginAttempts)
		if bucket == nil {
			return nil
		}
		return bucket.Delete([]byte(key))
	})
}

// Sweep removes records whose rolling window and lockout both expired
// before the given horizon. Returns the number of records removed.
func (s *AttemptStore) Sweep(now time.Time, window time.Duration) (int, error) {
	removed := 0

	err := s.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(BucketLoginAttempts)
		if bucket == nil {
			return nil
		}

		var stale [][]byte
		err := bucket.ForEach(func(k, v []byte) error {
			var rec loginlimit.Attempt
			if err := json.Unmarshal(v, &rec); err != nil {
				// Undecodable record, drop it.
				stale = append(stale, append([]byte(nil), k...))
				return nil
			}
			if rec.LockedUntil != nil && now.Before(*rec.LockedUntil) {
				return nil
			}
			if now.Sub(rec.WindowStart) > window {
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

// StartSweepRoutine sweeps stale records every interval until the returned
// stop function is called.
func (s *AttemptStore) StartSweepRoutine(interval, window time.Duration) func() {
	stop := make(chan struct{})

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.Sweep(time.Now(), window)
			case <-stop:
				return
			}
		}
	}()

	return func() { close(stop) }
}
