package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"startlist/internal/model"
)

// snapshot is the full persisted state. Counters travel with it so an id
// freed by deleting the newest record is still never reissued after a
// restart; on load the counter resumes at max(stored counter, max id + 1).
type snapshot struct {
	Users         []model.User         `json:"users"`
	Events        []model.Event        `json:"events"`
	Registrations []model.Registration `json:"registrations"`
	Counters      counters             `json:"counters"`
}

type counters struct {
	User         int `json:"user"`
	Event        int `json:"event"`
	Registration int `json:"registration"`
}

// persist writes the whole state out, replacing the previous snapshot. Called
// with s.mu held after every mutation. A write failure is logged and the
// in-memory mutation stands; durability may lag behind the last response.
func (s *store) persist() {
	if s.path == "" {
		return
	}

	snap := snapshot{
		Users:         make([]model.User, 0, len(s.users)),
		Events:        make([]model.Event, 0, len(s.events)),
		Registrations: make([]model.Registration, 0, len(s.registrations)),
		Counters: counters{
			User:         s.nextUserID,
			Event:        s.nextEventID,
			Registration: s.nextRegID,
		},
	}
	for _, u := range s.users {
		snap.Users = append(snap.Users, u)
	}
	for _, e := range s.events {
		snap.Events = append(snap.Events, e)
	}
	for _, r := range s.registrations {
		snap.Registrations = append(snap.Registrations, r)
	}
	sort.Slice(snap.Users, func(i, j int) bool { return snap.Users[i].ID < snap.Users[j].ID })
	sort.Slice(snap.Events, func(i, j int) bool { return snap.Events[i].ID < snap.Events[j].ID })
	sort.Slice(snap.Registrations, func(i, j int) bool { return snap.Registrations[i].ID < snap.Registrations[j].ID })

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		s.log.Error().Err(err).Msg("failed to marshal snapshot")
		return
	}

	if err := writeFileAtomic(s.path, data); err != nil {
		s.log.Error().Err(err).Str("path", s.path).Msg("failed to write snapshot")
	}
}

// writeFileAtomic writes via a temp file and rename so a crash mid-write
// leaves the previous snapshot intact.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// load reads the snapshot into the empty maps and recomputes the counters.
// Returns false when there is nothing to load (no path or no file yet); an
// error means the file exists but could not be used.
func (s *store) load() (bool, error) {
	if s.path == "" {
		return false, nil
	}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return false, fmt.Errorf("decode snapshot: %w", err)
	}

	for _, u := range snap.Users {
		s.users[u.ID] = u
		if u.ID >= s.nextUserID {
			s.nextUserID = u.ID + 1
		}
	}
	for _, e := range snap.Events {
		s.events[e.ID] = e
		if e.ID >= s.nextEventID {
			s.nextEventID = e.ID + 1
		}
	}
	for _, r := range snap.Registrations {
		s.registrations[regKey{UserID: r.UserID, EventID: r.EventID}] = r
		if r.ID >= s.nextRegID {
			s.nextRegID = r.ID + 1
		}
	}

	// Old snapshots carry no counters; the max-id scan above already covered
	// them.
	if snap.Counters.User > s.nextUserID {
		s.nextUserID = snap.Counters.User
	}
	if snap.Counters.Event > s.nextEventID {
		s.nextEventID = snap.Counters.Event
	}
	if snap.Counters.Registration > s.nextRegID {
		s.nextRegID = snap.Counters.Registration
	}

	s.log.Info().
		Str("path", s.path).
		Int("users", len(s.users)).
		Int("events", len(s.events)).
		Int("registrations", len(s.registrations)).
		Msg("snapshot loaded")
	return true, nil
}
