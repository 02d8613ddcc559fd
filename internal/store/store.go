package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"startlist/internal/model"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrEventNotFound = errors.New("event not found")
	ErrEmptyName     = errors.New("name must not be empty")
	ErrBadDate       = errors.New("date must be in DD.MM form")
	ErrBadGender     = errors.New("gender must be male or female")
	ErrBadSelected   = errors.New("selected must be none, black or green")
)

// Store is the sole authority over users, events and registrations. Every
// mutating call persists a full snapshot before returning; see snapshot.go.
type Store interface {
	ListEvents(ctx context.Context) ([]model.Event, error)
	CreateEvent(ctx context.Context, draft model.EventDraft) (model.Event, error)
	UpdateEvent(ctx context.Context, id int, draft model.EventDraft) (model.Event, error)
	DeleteEvent(ctx context.Context, id int) error
	SetEventLogo(ctx context.Context, id int, ref string) (model.Event, error)

	ListUsers(ctx context.Context) ([]model.User, error)
	CreateUser(ctx context.Context, draft model.UserDraft) (model.User, error)
	UpdateUser(ctx context.Context, id int, draft model.UserDraft) (model.User, error)
	DeleteUser(ctx context.Context, id int) error
	SetAvatar(ctx context.Context, id int, ref string) (model.User, error)

	ListRegistrations(ctx context.Context) ([]model.Registration, error)
	UpsertRegistration(ctx context.Context, userID, eventID int, selected model.Selected) (model.Registration, error)
}

// regKey is the composite (user, event) key. Registration ids exist only for
// external addressing, lookups always go through the pair.
type regKey struct {
	UserID  int
	EventID int
}

type store struct {
	mu            sync.Mutex
	users         map[int]model.User
	events        map[int]model.Event
	registrations map[regKey]model.Registration

	nextUserID  int
	nextEventID int
	nextRegID   int

	path     string
	collator *collate.Collator
	log      *zerolog.Logger
}

// New builds a store backed by the snapshot file at path. A missing or
// unreadable snapshot falls back to the default seed set instead of failing
// startup. An empty path disables persistence entirely.
func New(path string, log *zerolog.Logger) (Store, error) {
	if log == nil {
		return nil, fmt.Errorf("log cannot be nil")
	}
	s := &store{
		users:         make(map[int]model.User),
		events:        make(map[int]model.Event),
		registrations: make(map[regKey]model.Registration),
		nextUserID:    1,
		nextEventID:   1,
		nextRegID:     1,
		path:          path,
		collator:      collate.New(language.Russian, collate.IgnoreCase),
		log:           log,
	}

	loaded, err := s.load()
	if err != nil {
		s.log.Error().Err(err).Str("path", path).Msg("failed to load snapshot, falling back to seed data")
	}
	if !loaded {
		s.seed()
		s.persist()
	}
	return s, nil
}

func (s *store) seed() {
	for _, draft := range model.DefaultEvents {
		id := s.nextEventID
		s.nextEventID++
		s.events[id] = model.Event{ID: id, Name: draft.Name, Date: draft.Date, Location: draft.Location, URL: draft.URL}
	}
	for _, draft := range model.DefaultUsers {
		id := s.nextUserID
		s.nextUserID++
		s.users[id] = model.User{ID: id, Name: draft.Name, Gender: draft.Gender}
	}
	s.log.Info().
		Int("events", len(s.events)).
		Int("users", len(s.users)).
		Msg("store seeded with defaults")
}

// parseShortDate turns "DD.MM" into a comparable (month, day) key. The year
// is a fixed nominal season, so the key is just month*100+day.
func parseShortDate(date string) (int, error) {
	parts := strings.Split(date, ".")
	if len(parts) != 2 {
		return 0, ErrBadDate
	}
	day, err := strconv.Atoi(parts[0])
	if err != nil || day < 1 || day > 31 {
		return 0, ErrBadDate
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return 0, ErrBadDate
	}
	return month*100 + day, nil
}

func (s *store) ListEvents(ctx context.Context) ([]model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := make([]model.Event, 0, len(s.events))
	for _, e := range s.events {
		events = append(events, e)
	}
	// Map order is random, so fix insertion order first to keep equal dates
	// stable across calls.
	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
	sort.SliceStable(events, func(i, j int) bool {
		return dateKey(events[i].Date) < dateKey(events[j].Date)
	})
	return events, nil
}

// dateKey never fails: every stored date passed validation, but a snapshot
// edited by hand could hold garbage, which sorts last.
func dateKey(date string) int {
	key, err := parseShortDate(date)
	if err != nil {
		return 1<<31 - 1
	}
	return key
}

func checkEventDraft(draft model.EventDraft) error {
	if strings.TrimSpace(draft.Name) == "" {
		return ErrEmptyName
	}
	if _, err := parseShortDate(draft.Date); err != nil {
		return err
	}
	return nil
}

func (s *store) CreateEvent(ctx context.Context, draft model.EventDraft) (model.Event, error) {
	if err := checkEventDraft(draft); err != nil {
		return model.Event{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextEventID
	s.nextEventID++
	event := model.Event{
		ID:       id,
		Name:     draft.Name,
		Date:     draft.Date,
		Location: draft.Location,
		URL:      draft.URL,
	}
	s.events[id] = event
	s.persist()
	return event, nil
}

func (s *store) UpdateEvent(ctx context.Context, id int, draft model.EventDraft) (model.Event, error) {
	if err := checkEventDraft(draft); err != nil {
		return model.Event{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.events[id]
	if !ok {
		return model.Event{}, ErrEventNotFound
	}
	// Full replace of the mutable fields; the logo survives and changes only
	// through SetEventLogo.
	existing.Name = draft.Name
	existing.Date = draft.Date
	existing.Location = draft.Location
	existing.URL = draft.URL
	s.events[id] = existing
	s.persist()
	return existing, nil
}

func (s *store) DeleteEvent(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.events[id]; !ok {
		return ErrEventNotFound
	}
	delete(s.events, id)
	for key := range s.registrations {
		if key.EventID == id {
			delete(s.registrations, key)
		}
	}
	s.persist()
	return nil
}

func (s *store) SetEventLogo(ctx context.Context, id int, ref string) (model.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.events[id]
	if !ok {
		return model.Event{}, ErrEventNotFound
	}
	existing.LogoURL = ref
	s.events[id] = existing
	s.persist()
	return existing, nil
}

func (s *store) ListUsers(ctx context.Context) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	sort.SliceStable(users, func(i, j int) bool {
		return s.collator.CompareString(users[i].Name, users[j].Name) < 0
	})
	return users, nil
}

func checkUserDraft(draft *model.UserDraft) error {
	if strings.TrimSpace(draft.Name) == "" {
		return ErrEmptyName
	}
	switch draft.Gender {
	case "":
		draft.Gender = model.GenderMale
	case model.GenderMale, model.GenderFemale:
	default:
		return ErrBadGender
	}
	return nil
}

func (s *store) CreateUser(ctx context.Context, draft model.UserDraft) (model.User, error) {
	if err := checkUserDraft(&draft); err != nil {
		return model.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextUserID
	s.nextUserID++
	user := model.User{
		ID:        id,
		Name:      draft.Name,
		Gender:    draft.Gender,
		AvatarURL: draft.AvatarURL,
	}
	s.users[id] = user
	s.persist()
	return user, nil
}

func (s *store) UpdateUser(ctx context.Context, id int, draft model.UserDraft) (model.User, error) {
	if err := checkUserDraft(&draft); err != nil {
		return model.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[id]
	if !ok {
		return model.User{}, ErrUserNotFound
	}
	existing.Name = draft.Name
	existing.Gender = draft.Gender
	// A draft without an avatar keeps the stored one, it never clears it.
	if draft.AvatarURL != "" {
		existing.AvatarURL = draft.AvatarURL
	}
	s.users[id] = existing
	s.persist()
	return existing, nil
}

func (s *store) DeleteUser(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return ErrUserNotFound
	}
	delete(s.users, id)
	for key := range s.registrations {
		if key.UserID == id {
			delete(s.registrations, key)
		}
	}
	s.persist()
	return nil
}

func (s *store) SetAvatar(ctx context.Context, id int, ref string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[id]
	if !ok {
		return model.User{}, ErrUserNotFound
	}
	existing.AvatarURL = ref
	s.users[id] = existing
	s.persist()
	return existing, nil
}

func (s *store) ListRegistrations(ctx context.Context) ([]model.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	regs := make([]model.Registration, 0, len(s.registrations))
	for _, r := range s.registrations {
		regs = append(regs, r)
	}
	return regs, nil
}

func (s *store) UpsertRegistration(ctx context.Context, userID, eventID int, selected model.Selected) (model.Registration, error) {
	if !selected.Valid() {
		return model.Registration{}, ErrBadSelected
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := regKey{UserID: userID, EventID: eventID}
	if existing, ok := s.registrations[key]; ok {
		existing.Selected = selected
		s.registrations[key] = existing
		s.persist()
		return existing, nil
	}

	reg := model.Registration{
		ID:       s.nextRegID,
		UserID:   userID,
		EventID:  eventID,
		Selected: selected,
	}
	s.nextRegID++
	s.registrations[key] = reg
	s.persist()
	return reg, nil
}
