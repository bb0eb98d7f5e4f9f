package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"studyhub-backend/internal/models"
	"studyhub-backend/internal/repository"
)

// memStore is an in-memory Store. Transactions are serialized and rolled back on error.
type memStore struct {
	mu sync.Mutex
	db *memDB

	failTaskCreate error
}

type memDB struct {
	nextID   int64
	users    map[int64]models.User
	sessions map[int64]models.StudySession
	tasks    map[int64]models.Task
	events   map[int64]models.CalendarEvent
	convs    map[int64]models.AIConversation
	msgs     map[int64]models.AIMessage
}

func newMemStore() *memStore {
	return &memStore{db: &memDB{
		users:    map[int64]models.User{},
		sessions: map[int64]models.StudySession{},
		tasks:    map[int64]models.Task{},
		events:   map[int64]models.CalendarEvent{},
		convs:    map[int64]models.AIConversation{},
		msgs:     map[int64]models.AIMessage{},
	}}
}

func (db *memDB) clone() *memDB {
	c := &memDB{
		nextID:   db.nextID,
		users:    make(map[int64]models.User, len(db.users)),
		sessions: make(map[int64]models.StudySession, len(db.sessions)),
		tasks:    make(map[int64]models.Task, len(db.tasks)),
		events:   make(map[int64]models.CalendarEvent, len(db.events)),
		convs:    make(map[int64]models.AIConversation, len(db.convs)),
		msgs:     make(map[int64]models.AIMessage, len(db.msgs)),
	}
	for k, v := range db.users {
		c.users[k] = v
	}
	for k, v := range db.sessions {
		c.sessions[k] = v
	}
	for k, v := range db.tasks {
		c.tasks[k] = v
	}
	for k, v := range db.events {
		c.events[k] = v
	}
	for k, v := range db.convs {
		c.convs[k] = v
	}
	for k, v := range db.msgs {
		c.msgs[k] = v
	}
	return c
}

func (db *memDB) id() int64 {
	db.nextID++
	return db.nextID
}

func (s *memStore) Repos() Repositories {
	return s.repos(false)
}

func (s *memStore) WithTx(ctx context.Context, fn func(r Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.db.clone()
	if err := fn(s.repos(true)); err != nil {
		s.db = snapshot
		return err
	}
	return nil
}

func (s *memStore) repos(inTx bool) Repositories {
	r := memRepo{s: s, inTx: inTx}
	return Repositories{
		Users:         memUsers{r},
		Sessions:      memSessions{r},
		Tasks:         memTasks{r},
		Calendar:      memCalendar{r},
		Conversations: memConversations{r},
	}
}

// seedUser inserts a user directly and returns its id.
func (s *memStore) seedUser(username string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.db.id()
	s.db.users[id] = models.User{ID: id, Username: username, Email: username + "@example.com"}
	return id
}

func (s *memStore) user(id int64) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.users[id]
}

func (s *memStore) count(table string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch table {
	case "sessions":
		return len(s.db.sessions)
	case "tasks":
		return len(s.db.tasks)
	case "events":
		return len(s.db.events)
	case "conversations":
		return len(s.db.convs)
	case "messages":
		return len(s.db.msgs)
	}
	panic("unknown table " + table)
}

type memRepo struct {
	s    *memStore
	inTx bool
}

func (r memRepo) with(fn func(db *memDB) error) error {
	if !r.inTx {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
	}
	return fn(r.s.db)
}

// ─── users ───

type memUsers struct{ memRepo }

func (r memUsers) Create(ctx context.Context, user *models.User) error {
	return r.with(func(db *memDB) error {
		for _, u := range db.users {
			if u.Username == user.Username {
				return repository.UniqueViolation(repository.ConstraintUsername)
			}
			if u.Email == user.Email {
				return repository.UniqueViolation(repository.ConstraintEmail)
			}
		}
		user.ID = db.id()
		user.CreatedAt = time.Now().UTC()
		db.users[user.ID] = *user
		return nil
	})
}

func (r memUsers) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var out *models.User
	err := r.with(func(db *memDB) error {
		u, ok := db.users[id]
		if !ok {
			return pgx.ErrNoRows
		}
		out = &u
		return nil
	})
	return out, err
}

func (r memUsers) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var out *models.User
	err := r.with(func(db *memDB) error {
		for _, u := range db.users {
			if u.Username == username {
				u := u
				out = &u
				return nil
			}
		}
		return pgx.ErrNoRows
	})
	return out, err
}

func (r memUsers) Taken(ctx context.Context, username, email string) (bool, bool, error) {
	var usernameTaken, emailTaken bool
	err := r.with(func(db *memDB) error {
		for _, u := range db.users {
			usernameTaken = usernameTaken || u.Username == username
			emailTaken = emailTaken || u.Email == email
		}
		return nil
	})
	return usernameTaken, emailTaken, err
}

func (r memUsers) UpdatePassword(ctx context.Context, userID int64, hash string) error {
	return r.with(func(db *memDB) error {
		u, ok := db.users[userID]
		if !ok {
			return pgx.ErrNoRows
		}
		u.PasswordHash = hash
		db.users[userID] = u
		return nil
	})
}

func (r memUsers) AddStudyTime(ctx context.Context, userID int64, study, game int) (*models.User, error) {
	var out *models.User
	err := r.with(func(db *memDB) error {
		u, ok := db.users[userID]
		if !ok {
			return pgx.ErrNoRows
		}
		u.StudyTime += study
		u.GameTime += game
		db.users[userID] = u
		out = &u
		return nil
	})
	return out, err
}

func (r memUsers) Delete(ctx context.Context, userID int64) error {
	return r.with(func(db *memDB) error {
		if _, ok := db.users[userID]; !ok {
			return pgx.ErrNoRows
		}
		delete(db.users, userID)
		return nil
	})
}

// ─── study sessions ───

type memSessions struct{ memRepo }

func activeConflict(db *memDB, s *models.StudySession) error {
	if s.EndTime != nil {
		return nil
	}
	for id, other := range db.sessions {
		if id != s.ID && other.UserID == s.UserID && other.EndTime == nil {
			return repository.UniqueViolation(repository.ConstraintActiveSession)
		}
	}
	return nil
}

func (r memSessions) Create(ctx context.Context, s *models.StudySession) error {
	return r.with(func(db *memDB) error {
		if err := activeConflict(db, s); err != nil {
			return err
		}
		s.ID = db.id()
		db.sessions[s.ID] = *s
		return nil
	})
}

func (r memSessions) GetByID(ctx context.Context, id, userID int64) (*models.StudySession, error) {
	var out *models.StudySession
	err := r.with(func(db *memDB) error {
		s, ok := db.sessions[id]
		if !ok || s.UserID != userID {
			return pgx.ErrNoRows
		}
		out = &s
		return nil
	})
	return out, err
}

func (r memSessions) GetActive(ctx context.Context, userID int64) (*models.StudySession, error) {
	var out *models.StudySession
	err := r.with(func(db *memDB) error {
		for _, s := range db.sessions {
			if s.UserID == userID && s.EndTime == nil {
				s := s
				out = &s
				return nil
			}
		}
		return pgx.ErrNoRows
	})
	return out, err
}

func (r memSessions) Update(ctx context.Context, s *models.StudySession) error {
	return r.with(func(db *memDB) error {
		cur, ok := db.sessions[s.ID]
		if !ok || cur.UserID != s.UserID {
			return pgx.ErrNoRows
		}
		if err := activeConflict(db, s); err != nil {
			return err
		}
		db.sessions[s.ID] = *s
		return nil
	})
}

func (r memSessions) Delete(ctx context.Context, id, userID int64) error {
	return r.with(func(db *memDB) error {
		s, ok := db.sessions[id]
		if !ok || s.UserID != userID {
			return pgx.ErrNoRows
		}
		delete(db.sessions, id)
		return nil
	})
}

func (r memSessions) List(ctx context.Context, userID int64, f models.StudySessionFilter) ([]*models.StudySession, int, error) {
	var out []*models.StudySession
	err := r.with(func(db *memDB) error {
		for _, s := range db.sessions {
			if s.UserID != userID {
				continue
			}
			if f.StartDate != nil && s.StartTime.Before(*f.StartDate) {
				continue
			}
			if f.EndDate != nil && !s.StartTime.Before(*f.EndDate) {
				continue
			}
			if f.Completed != nil && *f.Completed == (s.EndTime == nil) {
				continue
			}
			if f.Subject != "" && (s.Subject == nil || !strings.Contains(strings.ToLower(*s.Subject), strings.ToLower(f.Subject))) {
				continue
			}
			s := s
			out = append(out, &s)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.After(out[j].StartTime)
		}
		return out[i].ID > out[j].ID
	})
	total := len(out)
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			out = nil
		} else {
			out = out[f.Offset:]
		}
	}
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	if out == nil {
		out = []*models.StudySession{}
	}
	return out, total, err
}

// ─── tasks ───

type memTasks struct{ memRepo }

func (r memTasks) Create(ctx context.Context, t *models.Task) error {
	return r.with(func(db *memDB) error {
		if r.s.failTaskCreate != nil {
			return r.s.failTaskCreate
		}
		t.ID = db.id()
		db.tasks[t.ID] = *t
		return nil
	})
}

func (r memTasks) GetByID(ctx context.Context, id, userID int64) (*models.Task, error) {
	var out *models.Task
	err := r.with(func(db *memDB) error {
		t, ok := db.tasks[id]
		if !ok || t.UserID != userID {
			return pgx.ErrNoRows
		}
		out = &t
		return nil
	})
	return out, err
}

func (r memTasks) GetByCalendarEventID(ctx context.Context, eventID, userID int64) (*models.Task, error) {
	var out *models.Task
	err := r.with(func(db *memDB) error {
		for _, t := range db.tasks {
			if t.UserID == userID && t.CalendarEventID != nil && *t.CalendarEventID == eventID {
				t := t
				out = &t
				return nil
			}
		}
		return pgx.ErrNoRows
	})
	return out, err
}

func (r memTasks) List(ctx context.Context, userID int64, completed *bool) ([]*models.Task, error) {
	out := []*models.Task{}
	err := r.with(func(db *memDB) error {
		for _, t := range db.tasks {
			if t.UserID == userID && (completed == nil || *completed == t.Completed) {
				t := t
				out = append(out, &t)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (r memTasks) Update(ctx context.Context, t *models.Task) error {
	return r.with(func(db *memDB) error {
		cur, ok := db.tasks[t.ID]
		if !ok || cur.UserID != t.UserID {
			return pgx.ErrNoRows
		}
		db.tasks[t.ID] = *t
		return nil
	})
}

func (r memTasks) Delete(ctx context.Context, id, userID int64) error {
	return r.with(func(db *memDB) error {
		t, ok := db.tasks[id]
		if !ok || t.UserID != userID {
			return pgx.ErrNoRows
		}
		delete(db.tasks, id)
		return nil
	})
}

// ─── calendar ───

type memCalendar struct{ memRepo }

func (r memCalendar) Create(ctx context.Context, e *models.CalendarEvent) error {
	return r.with(func(db *memDB) error {
		e.ID = db.id()
		db.events[e.ID] = *e
		return nil
	})
}

func (r memCalendar) GetByID(ctx context.Context, id, userID int64) (*models.CalendarEvent, error) {
	var out *models.CalendarEvent
	err := r.with(func(db *memDB) error {
		e, ok := db.events[id]
		if !ok || e.UserID != userID {
			return pgx.ErrNoRows
		}
		out = &e
		return nil
	})
	return out, err
}

func (r memCalendar) List(ctx context.Context, userID int64, from, to *time.Time) ([]*models.CalendarEvent, error) {
	out := []*models.CalendarEvent{}
	err := r.with(func(db *memDB) error {
		for _, e := range db.events {
			if e.UserID != userID {
				continue
			}
			if from != nil && !e.EndTime.After(*from) {
				continue
			}
			if to != nil && !e.StartTime.Before(*to) {
				continue
			}
			e := e
			out = append(out, &e)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, err
}

func (r memCalendar) Update(ctx context.Context, e *models.CalendarEvent) error {
	return r.with(func(db *memDB) error {
		cur, ok := db.events[e.ID]
		if !ok || cur.UserID != e.UserID {
			return pgx.ErrNoRows
		}
		db.events[e.ID] = *e
		return nil
	})
}

// Delete mirrors ON DELETE SET NULL on tasks.calendar_event_id.
func (r memCalendar) Delete(ctx context.Context, id, userID int64) error {
	return r.with(func(db *memDB) error {
		e, ok := db.events[id]
		if !ok || e.UserID != userID {
			return pgx.ErrNoRows
		}
		delete(db.events, id)
		for tid, t := range db.tasks {
			if t.CalendarEventID != nil && *t.CalendarEventID == id {
				t.CalendarEventID = nil
				db.tasks[tid] = t
			}
		}
		return nil
	})
}

// ─── conversations ───

type memConversations struct{ memRepo }

func (r memConversations) Create(ctx context.Context, c *models.AIConversation) error {
	return r.with(func(db *memDB) error {
		c.ID = db.id()
		now := time.Now().UTC()
		c.CreatedAt, c.UpdatedAt = now, now
		db.convs[c.ID] = *c
		return nil
	})
}

func (r memConversations) GetByID(ctx context.Context, id, userID int64) (*models.AIConversation, error) {
	var out *models.AIConversation
	err := r.with(func(db *memDB) error {
		c, ok := db.convs[id]
		if !ok || c.UserID != userID {
			return pgx.ErrNoRows
		}
		out = &c
		return nil
	})
	return out, err
}

func (r memConversations) ListByUser(ctx context.Context, userID int64) ([]*models.AIConversation, error) {
	out := []*models.AIConversation{}
	err := r.with(func(db *memDB) error {
		for _, c := range db.convs {
			if c.UserID == userID {
				c := c
				out = append(out, &c)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, err
}

func (r memConversations) update(id, userID int64, fn func(c *models.AIConversation)) error {
	return r.with(func(db *memDB) error {
		c, ok := db.convs[id]
		if !ok || (userID != 0 && c.UserID != userID) {
			return pgx.ErrNoRows
		}
		fn(&c)
		db.convs[id] = c
		return nil
	})
}

func (r memConversations) UpdateTitle(ctx context.Context, id, userID int64, title string, at time.Time) error {
	return r.update(id, userID, func(c *models.AIConversation) { c.Title, c.UpdatedAt = title, at })
}

func (r memConversations) SetActive(ctx context.Context, id, userID int64, active bool, at time.Time) error {
	return r.update(id, userID, func(c *models.AIConversation) { c.IsActive, c.UpdatedAt = active, at })
}

func (r memConversations) Touch(ctx context.Context, id int64, at time.Time) error {
	return r.update(id, 0, func(c *models.AIConversation) { c.UpdatedAt = at })
}

func (r memConversations) Delete(ctx context.Context, id, userID int64) error {
	return r.with(func(db *memDB) error {
		c, ok := db.convs[id]
		if !ok || c.UserID != userID {
			return pgx.ErrNoRows
		}
		for mid, m := range db.msgs {
			if m.ConversationID == id {
				delete(db.msgs, mid)
			}
		}
		delete(db.convs, id)
		return nil
	})
}

func (r memConversations) AddMessage(ctx context.Context, m *models.AIMessage) error {
	return r.with(func(db *memDB) error {
		if _, ok := db.convs[m.ConversationID]; !ok {
			return pgx.ErrNoRows
		}
		m.ID = db.id()
		db.msgs[m.ID] = *m
		return nil
	})
}

func (r memConversations) ListMessages(ctx context.Context, conversationID int64) ([]*models.AIMessage, error) {
	out := []*models.AIMessage{}
	err := r.with(func(db *memDB) error {
		for _, m := range db.msgs {
			if m.ConversationID == conversationID {
				m := m
				out = append(out, &m)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

// ─── collaborators ───

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.WSMessage
}

func (p *recordingPublisher) Publish(ctx context.Context, userID int64, msg models.WSMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, msg)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

// fixedClock returns a controllable now func.
type fixedClock struct{ t time.Time }

func (c *fixedClock) now() time.Time { return c.t }
func (c *fixedClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func mustParse(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func strPtr(s string) *string { return &s }
