package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/iliyamo/exam-reservation/internal/config"
	"github.com/iliyamo/exam-reservation/internal/model"
	"github.com/iliyamo/exam-reservation/internal/queue"
	"github.com/iliyamo/exam-reservation/internal/repository"
)

// fakeTxRunner serializes transactions with a mutex, mirroring the
// serialization the session row lock provides in MySQL.
type fakeTxRunner struct {
	mu sync.Mutex
}

func (f *fakeTxRunner) RunTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn(nil)
}

// fakeStore holds shared in-memory state for the session catalog and
// reservation ledger fakes, including the unique-key backstop on
// (user, session).
type fakeStore struct {
	mu           sync.Mutex
	sessions     map[uint64]model.ExamSession
	reservations map[uint64]model.Reservation
	users        map[uint64]repository.OwnerInfo
	nextID       uint64
	now          time.Time
}

func newFakeStore(now time.Time) *fakeStore {
	return &fakeStore{
		sessions:     make(map[uint64]model.ExamSession),
		reservations: make(map[uint64]model.Reservation),
		users:        make(map[uint64]repository.OwnerInfo),
		nextID:       1,
		now:          now,
	}
}

func (f *fakeStore) addSession(s model.ExamSession) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[s.ID] = s
}

func (f *fakeStore) addReservation(r model.Reservation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.ID == 0 {
		r.ID = f.nextID
		f.nextID++
	} else if r.ID >= f.nextID {
		f.nextID = r.ID + 1
	}
	f.reservations[r.ID] = r
}

func (f *fakeStore) reservedSum(sessionID uint64, countTentative bool) uint32 {
	var sum uint32
	for _, r := range f.reservations {
		if r.SessionID != sessionID {
			continue
		}
		if r.IsConfirmed || countTentative {
			sum += r.NumParticipants
		}
	}
	return sum
}

// fakeSessions adapts the shared state to SessionStore.
type fakeSessions struct{ *fakeStore }

// fakeReservations adapts the shared state to ReservationStore.
type fakeReservations struct{ *fakeStore }

func (f fakeSessions) GetByID(ctx context.Context, id uint64) (*model.ExamSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	return &s, nil
}

func (f fakeSessions) ListAvailable(ctx context.Context, windowStart, windowEnd time.Time, countTentative bool) ([]repository.AvailableTime, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.AvailableTime
	for _, s := range f.sessions {
		if !s.StartTime.After(windowStart) || s.StartTime.After(windowEnd) {
			continue
		}
		reserved := f.reservedSum(s.ID, countTentative)
		if reserved >= s.MaxCapacity {
			continue
		}
		out = append(out, repository.AvailableTime{
			SessionID:            s.ID,
			Title:                s.Title,
			StartTime:            s.StartTime,
			MaxCapacity:          s.MaxCapacity,
			ReservedParticipants: reserved,
			AvailableSlots:       s.MaxCapacity - reserved,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (f fakeSessions) LockOccupancyTx(ctx context.Context, tx *sql.Tx, sessionID uint64, countTentative bool) (*model.ExamSession, uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[sessionID]
	if !ok {
		return nil, 0, repository.ErrSessionNotFound
	}
	return &s, f.reservedSum(sessionID, countTentative), nil
}

func (f fakeReservations) FindByUserAndSessionTx(ctx context.Context, tx *sql.Tx, userID, sessionID uint64) (*model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.reservations {
		if r.UserID == userID && r.SessionID == sessionID {
			out := r
			return &out, nil
		}
	}
	return nil, repository.ErrReservationNotFound
}

func (f fakeReservations) CreateTx(ctx context.Context, tx *sql.Tx, rec *model.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.reservations {
		if r.UserID == rec.UserID && r.SessionID == rec.SessionID {
			return repository.ErrConflict
		}
	}
	rec.ID = f.nextID
	f.nextID++
	rec.CreatedAt = f.now
	rec.UpdatedAt = f.now
	f.reservations[rec.ID] = *rec
	return nil
}

func (f *fakeStore) getReservation(id uint64) (*model.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reservations[id]
	if !ok {
		return nil, repository.ErrReservationNotFound
	}
	return &r, nil
}

func (f fakeReservations) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	return f.getReservation(id)
}

func (f fakeReservations) GetTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Reservation, error) {
	return f.getReservation(id)
}

func (f fakeReservations) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Reservation, error) {
	return f.getReservation(id)
}

func (f fakeReservations) UpdateTx(ctx context.Context, tx *sql.Tx, rec *model.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.reservations[rec.ID]; !ok {
		return repository.ErrReservationNotFound
	}
	rec.UpdatedAt = f.now
	f.reservations[rec.ID] = *rec
	return nil
}

func (f fakeReservations) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.reservations[id]; !ok {
		return false, nil
	}
	delete(f.reservations, id)
	return true, nil
}

func (f fakeReservations) ListForUser(ctx context.Context, userID *uint64, page, pageSize int) ([]repository.ReservationDetail, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	var all []model.Reservation
	for _, r := range f.reservations {
		if userID != nil && r.UserID != *userID {
			continue
		}
		all = append(all, r)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := len(all)

	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	var out []repository.ReservationDetail
	for _, r := range all[start:end] {
		s := f.sessions[r.SessionID]
		d := repository.ReservationDetail{
			ID:              r.ID,
			SessionID:       r.SessionID,
			NumParticipants: r.NumParticipants,
			IsConfirmed:     r.IsConfirmed,
			SessionTitle:    s.Title,
			StartTime:       s.StartTime,
			EndTime:         s.EndTime,
			CreatedAt:       r.CreatedAt,
		}
		if userID == nil {
			owner := f.users[r.UserID]
			if owner.UserID == 0 {
				owner = repository.OwnerInfo{UserID: r.UserID}
			}
			d.Owner = &owner
		}
		out = append(out, d)
	}
	return out, total, nil
}

// recordingPublisher captures confirmation events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.ReservationConfirmedEvent
}

func (p *recordingPublisher) PublishReservationConfirmed(ctx context.Context, ev queue.ReservationConfirmedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func defaultPolicy() config.ReservationPolicy {
	return config.ReservationPolicy{
		BookingWindowDays:   3,
		CountTentative:      false,
		BlockOccupiedCancel: true,
	}
}

func newTestService(t *testing.T, store *fakeStore, policy config.ReservationPolicy, events EventPublisher) *ReservationService {
	t.Helper()
	return NewReservationService(&fakeTxRunner{}, fakeSessions{store}, fakeReservations{store}, events, policy, func() time.Time { return testNow })
}

// storeWithSession seeds one bookable session starting tomorrow.
func storeWithSession(capacity uint32) *fakeStore {
	store := newFakeStore(testNow)
	store.addSession(model.ExamSession{
		ID:          1,
		Title:       "Certification Exam A",
		StartTime:   testNow.Add(24 * time.Hour),
		EndTime:     testNow.Add(26 * time.Hour),
		MaxCapacity: capacity,
	})
	return store
}

func TestCreateReservation(t *testing.T) {
	store := storeWithSession(100)
	svc := newTestService(t, store, defaultPolicy(), nil)

	rec, err := svc.Create(context.Background(), Principal{ID: 7}, 1, 10)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if rec.ID == 0 {
		t.Error("expected generated id")
	}
	if rec.UserID != 7 || rec.SessionID != 1 || rec.NumParticipants != 10 {
		t.Errorf("unexpected reservation: %+v", rec)
	}
	if rec.IsConfirmed {
		t.Error("new reservation must start tentative")
	}
}

func TestCreateRejectsZeroParticipants(t *testing.T) {
	svc := newTestService(t, storeWithSession(100), defaultPolicy(), nil)

	_, err := svc.Create(context.Background(), Principal{ID: 7}, 1, 0)
	if !errors.Is(err, ErrParticipantsRequired) {
		t.Fatalf("want ErrParticipantsRequired, got %v", err)
	}
	if !errors.Is(err, ErrInvalidRequest) {
		t.Error("participant errors must wrap ErrInvalidRequest")
	}
}

func TestCreateUnknownSession(t *testing.T) {
	svc := newTestService(t, storeWithSession(100), defaultPolicy(), nil)

	_, err := svc.Create(context.Background(), Principal{ID: 7}, 99, 1)
	if !errors.Is(err, ErrSessionUnavailable) {
		t.Fatalf("want ErrSessionUnavailable, got %v", err)
	}
}

func TestCreateDuplicateIsStable(t *testing.T) {
	store := storeWithSession(100)
	svc := newTestService(t, store, defaultPolicy(), nil)
	ctx := context.Background()

	if _, err := svc.Create(ctx, Principal{ID: 7}, 1, 2); err != nil {
		t.Fatalf("first create: %v", err)
	}
	// Retrying must keep producing the same error kind.
	for i := 0; i < 2; i++ {
		_, err := svc.Create(ctx, Principal{ID: 7}, 1, 2)
		if !errors.Is(err, repository.ErrConflict) {
			t.Fatalf("attempt %d: want ErrConflict, got %v", i+2, err)
		}
	}
	// A different user is still admitted.
	if _, err := svc.Create(ctx, Principal{ID: 8}, 1, 2); err != nil {
		t.Fatalf("other user: %v", err)
	}
}

func TestCreateCapacity(t *testing.T) {
	store := storeWithSession(50)
	// Confirmed rows occupy 45 of 50 seats; a tentative row is free under
	// the confirmed-only counting policy.
	store.addReservation(model.Reservation{UserID: 2, SessionID: 1, NumParticipants: 45, IsConfirmed: true})
	store.addReservation(model.Reservation{UserID: 3, SessionID: 1, NumParticipants: 30, IsConfirmed: false})
	svc := newTestService(t, store, defaultPolicy(), nil)
	ctx := context.Background()

	if _, err := svc.Create(ctx, Principal{ID: 7}, 1, 6); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("want ErrCapacityExceeded, got %v", err)
	}
	// Exactly filling the remaining confirmed capacity is admitted.
	if _, err := svc.Create(ctx, Principal{ID: 7}, 1, 5); err != nil {
		t.Fatalf("fill to capacity: %v", err)
	}
}

func TestCreateCapacityCountsTentative(t *testing.T) {
	store := storeWithSession(50)
	store.addReservation(model.Reservation{UserID: 2, SessionID: 1, NumParticipants: 30, IsConfirmed: false})
	policy := defaultPolicy()
	policy.CountTentative = true
	svc := newTestService(t, store, policy, nil)

	_, err := svc.Create(context.Background(), Principal{ID: 7}, 1, 21)
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("want ErrCapacityExceeded under tentative counting, got %v", err)
	}
}

func TestCreateBookingWindow(t *testing.T) {
	window := defaultPolicy().Window()
	cases := []struct {
		name  string
		start time.Time
		ok    bool
	}{
		{"already started", testNow.Add(-time.Hour), false},
		{"starts this instant", testNow, false},
		{"starts in a minute", testNow.Add(time.Minute), true},
		{"window boundary", testNow.Add(window), true},
		{"just past window", testNow.Add(window + time.Second), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore(testNow)
			store.addSession(model.ExamSession{
				ID:          1,
				Title:       "Window Exam",
				StartTime:   tc.start,
				EndTime:     tc.start.Add(2 * time.Hour),
				MaxCapacity: 10,
			})
			svc := newTestService(t, store, defaultPolicy(), nil)

			_, err := svc.Create(context.Background(), Principal{ID: 7}, 1, 1)
			if tc.ok && err != nil {
				t.Fatalf("want admission, got %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrOutsideBookingWindow) {
				t.Fatalf("want ErrOutsideBookingWindow, got %v", err)
			}
		})
	}
}

func TestCreateChecksCapacityBeforeWindow(t *testing.T) {
	// A full session outside the window reports the capacity failure.
	store := newFakeStore(testNow)
	store.addSession(model.ExamSession{
		ID: 1, Title: "Past Exam",
		StartTime:   testNow.Add(-time.Hour),
		EndTime:     testNow.Add(time.Hour),
		MaxCapacity: 5,
	})
	store.addReservation(model.Reservation{UserID: 2, SessionID: 1, NumParticipants: 5, IsConfirmed: true})
	svc := newTestService(t, store, defaultPolicy(), nil)

	_, err := svc.Create(context.Background(), Principal{ID: 7}, 1, 1)
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("want ErrCapacityExceeded first, got %v", err)
	}
}

func TestGetOwnership(t *testing.T) {
	store := storeWithSession(100)
	store.addReservation(model.Reservation{ID: 11, UserID: 7, SessionID: 1, NumParticipants: 3})
	svc := newTestService(t, store, defaultPolicy(), nil)
	ctx := context.Background()

	if _, err := svc.Get(ctx, Principal{ID: 7}, 11); err != nil {
		t.Fatalf("owner read: %v", err)
	}
	if _, err := svc.Get(ctx, Principal{ID: 8}, 11); !errors.Is(err, repository.ErrForbidden) {
		t.Fatalf("want ErrForbidden, got %v", err)
	}
	if _, err := svc.Get(ctx, Principal{ID: 8, Privileged: true}, 11); err != nil {
		t.Fatalf("admin read: %v", err)
	}
	if _, err := svc.Get(ctx, Principal{ID: 7}, 99); !errors.Is(err, repository.ErrReservationNotFound) {
		t.Fatalf("want ErrReservationNotFound, got %v", err)
	}
}

func TestListScoping(t *testing.T) {
	store := storeWithSession(100)
	store.users[7] = repository.OwnerInfo{UserID: 7, Email: "a@example.com", FullName: "A"}
	store.users[8] = repository.OwnerInfo{UserID: 8, Email: "b@example.com", FullName: "B"}
	store.addReservation(model.Reservation{UserID: 7, SessionID: 1, NumParticipants: 1})
	store.addReservation(model.Reservation{UserID: 8, SessionID: 1, NumParticipants: 2})
	svc := newTestService(t, store, defaultPolicy(), nil)
	ctx := context.Background()

	// Non-privileged callers only ever see their own rows, even with a
	// filter for someone else.
	other := uint64(8)
	items, total, err := svc.List(ctx, Principal{ID: 7}, &other, 1, 20)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("want 1 own row, got total=%d len=%d", total, len(items))
	}
	if items[0].Owner != nil {
		t.Error("own listing must not attach owner info")
	}

	// Privileged, no filter: all rows with owners attached.
	items, total, err = svc.List(ctx, Principal{ID: 1, Privileged: true}, nil, 1, 20)
	if err != nil {
		t.Fatalf("admin List: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("want 2 rows, got total=%d len=%d", total, len(items))
	}
	for _, it := range items {
		if it.Owner == nil {
			t.Fatalf("admin listing row %d missing owner", it.ID)
		}
	}
}

func TestListCapsPageSize(t *testing.T) {
	store := storeWithSession(100000)
	for i := uint64(1); i <= 150; i++ {
		store.addReservation(model.Reservation{UserID: i, SessionID: 1, NumParticipants: 1})
	}
	svc := newTestService(t, store, defaultPolicy(), nil)

	items, total, err := svc.List(context.Background(), Principal{ID: 1, Privileged: true}, nil, 1, 1000)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 150 {
		t.Errorf("want total 150, got %d", total)
	}
	if len(items) != 100 {
		t.Errorf("page size must be capped at 100, got %d", len(items))
	}
}

func TestUpdateConfirmationRequiresPrivilege(t *testing.T) {
	store := storeWithSession(100)
	store.addReservation(model.Reservation{ID: 11, UserID: 7, SessionID: 1, NumParticipants: 3})
	svc := newTestService(t, store, defaultPolicy(), nil)

	confirmed := true
	_, err := svc.Update(context.Background(), Principal{ID: 7}, 11, UpdatePatch{IsConfirmed: &confirmed})
	if !errors.Is(err, ErrConfirmationDenied) {
		t.Fatalf("want ErrConfirmationDenied, got %v", err)
	}
}

func TestUpdateOwnership(t *testing.T) {
	store := storeWithSession(100)
	store.addReservation(model.Reservation{ID: 11, UserID: 7, SessionID: 1, NumParticipants: 3})
	svc := newTestService(t, store, defaultPolicy(), nil)

	n := uint32(4)
	_, err := svc.Update(context.Background(), Principal{ID: 8}, 11, UpdatePatch{NumParticipants: &n})
	if !errors.Is(err, repository.ErrForbidden) {
		t.Fatalf("want ErrForbidden, got %v", err)
	}
}

func TestConfirmRechecksCapacity(t *testing.T) {
	store := storeWithSession(50)
	store.addReservation(model.Reservation{ID: 11, UserID: 2, SessionID: 1, NumParticipants: 45, IsConfirmed: true})
	store.addReservation(model.Reservation{ID: 12, UserID: 7, SessionID: 1, NumParticipants: 10, IsConfirmed: false})
	pub := &recordingPublisher{}
	svc := newTestService(t, store, defaultPolicy(), pub)
	ctx := context.Background()
	admin := Principal{ID: 1, Privileged: true}

	confirmed := true
	// Confirming 10 on top of 45 confirmed would break the capacity
	// invariant, so the transition is rejected.
	_, err := svc.Update(ctx, admin, 12, UpdatePatch{IsConfirmed: &confirmed})
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("want ErrCapacityExceeded, got %v", err)
	}
	if len(pub.events) != 0 {
		t.Fatal("rejected confirmation must not publish")
	}

	// Shrink and confirm in one patch: 45 + 5 fits exactly.
	n := uint32(5)
	rec, err := svc.Update(ctx, admin, 12, UpdatePatch{NumParticipants: &n, IsConfirmed: &confirmed})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if !rec.IsConfirmed || rec.NumParticipants != 5 {
		t.Errorf("unexpected record after confirm: %+v", rec)
	}
	if len(pub.events) != 1 {
		t.Fatalf("want 1 confirmation event, got %d", len(pub.events))
	}
	ev := pub.events[0]
	if ev.ReservationID != 12 || ev.SessionID != 1 || ev.NumParticipants != 5 {
		t.Errorf("unexpected event: %+v", ev)
	}

	// Re-confirming an already confirmed reservation publishes nothing.
	if _, err := svc.Update(ctx, admin, 12, UpdatePatch{IsConfirmed: &confirmed}); err != nil {
		t.Fatalf("re-confirm: %v", err)
	}
	if len(pub.events) != 1 {
		t.Error("re-confirmation must not publish again")
	}
}

func TestUpdateGrowthRechecksCapacity(t *testing.T) {
	store := storeWithSession(50)
	store.addReservation(model.Reservation{ID: 11, UserID: 2, SessionID: 1, NumParticipants: 40, IsConfirmed: true})
	store.addReservation(model.Reservation{ID: 12, UserID: 7, SessionID: 1, NumParticipants: 5, IsConfirmed: true})
	svc := newTestService(t, store, defaultPolicy(), nil)
	ctx := context.Background()
	owner := Principal{ID: 7}

	grow := uint32(11)
	if _, err := svc.Update(ctx, owner, 12, UpdatePatch{NumParticipants: &grow}); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("want ErrCapacityExceeded, got %v", err)
	}
	// Growing within the remaining room swaps the old share for the new.
	fit := uint32(10)
	if _, err := svc.Update(ctx, owner, 12, UpdatePatch{NumParticipants: &fit}); err != nil {
		t.Fatalf("grow to fit: %v", err)
	}
	// Shrinking never trips the capacity check, even on a full session.
	shrink := uint32(1)
	if _, err := svc.Update(ctx, owner, 12, UpdatePatch{NumParticipants: &shrink}); err != nil {
		t.Fatalf("shrink: %v", err)
	}
}

func TestUpdateRejectsZeroParticipants(t *testing.T) {
	store := storeWithSession(100)
	store.addReservation(model.Reservation{ID: 11, UserID: 7, SessionID: 1, NumParticipants: 3})
	svc := newTestService(t, store, defaultPolicy(), nil)

	zero := uint32(0)
	_, err := svc.Update(context.Background(), Principal{ID: 7}, 11, UpdatePatch{NumParticipants: &zero})
	if !errors.Is(err, ErrParticipantsRequired) {
		t.Fatalf("want ErrParticipantsRequired, got %v", err)
	}
}

func TestDeleteBlockedWhileOccupied(t *testing.T) {
	store := storeWithSession(100)
	store.addReservation(model.Reservation{ID: 11, UserID: 7, SessionID: 1, NumParticipants: 3})
	svc := newTestService(t, store, defaultPolicy(), nil)

	err := svc.Delete(context.Background(), Principal{ID: 7}, 11)
	if !errors.Is(err, ErrCancelBlocked) {
		t.Fatalf("want ErrCancelBlocked, got %v", err)
	}
	if _, err := store.getReservation(11); err != nil {
		t.Fatal("blocked delete must leave the row in place")
	}
}

func TestDeleteWithGuardDisabled(t *testing.T) {
	store := storeWithSession(100)
	store.addReservation(model.Reservation{ID: 11, UserID: 7, SessionID: 1, NumParticipants: 3})
	policy := defaultPolicy()
	policy.BlockOccupiedCancel = false
	svc := newTestService(t, store, policy, nil)
	ctx := context.Background()

	if err := svc.Delete(ctx, Principal{ID: 8}, 11); !errors.Is(err, repository.ErrForbidden) {
		t.Fatalf("want ErrForbidden for stranger, got %v", err)
	}
	if err := svc.Delete(ctx, Principal{ID: 7}, 11); err != nil {
		t.Fatalf("owner delete: %v", err)
	}
	if _, err := store.getReservation(11); !errors.Is(err, repository.ErrReservationNotFound) {
		t.Fatal("row must be gone after delete")
	}
	if err := svc.Delete(ctx, Principal{ID: 7}, 11); !errors.Is(err, repository.ErrReservationNotFound) {
		t.Fatalf("want ErrReservationNotFound, got %v", err)
	}
}

func TestAvailableTimes(t *testing.T) {
	store := newFakeStore(testNow)
	window := defaultPolicy().Window()
	store.addSession(model.ExamSession{ID: 1, Title: "Soon", StartTime: testNow.Add(2 * time.Hour), EndTime: testNow.Add(4 * time.Hour), MaxCapacity: 10})
	store.addSession(model.ExamSession{ID: 2, Title: "Sooner", StartTime: testNow.Add(time.Hour), EndTime: testNow.Add(3 * time.Hour), MaxCapacity: 10})
	store.addSession(model.ExamSession{ID: 3, Title: "Full", StartTime: testNow.Add(5 * time.Hour), EndTime: testNow.Add(7 * time.Hour), MaxCapacity: 5})
	store.addSession(model.ExamSession{ID: 4, Title: "Too far", StartTime: testNow.Add(window + time.Hour), EndTime: testNow.Add(window + 2*time.Hour), MaxCapacity: 10})
	store.addSession(model.ExamSession{ID: 5, Title: "Started", StartTime: testNow.Add(-time.Hour), EndTime: testNow.Add(time.Hour), MaxCapacity: 10})
	store.addReservation(model.Reservation{UserID: 2, SessionID: 3, NumParticipants: 5, IsConfirmed: true})
	store.addReservation(model.Reservation{UserID: 2, SessionID: 1, NumParticipants: 4, IsConfirmed: true})
	svc := newTestService(t, store, defaultPolicy(), nil)

	times, err := svc.AvailableTimes(context.Background())
	if err != nil {
		t.Fatalf("AvailableTimes: %v", err)
	}
	if len(times) != 2 {
		t.Fatalf("want 2 bookable sessions, got %d: %+v", len(times), times)
	}
	if times[0].SessionID != 2 || times[1].SessionID != 1 {
		t.Errorf("want ascending start order [2 1], got [%d %d]", times[0].SessionID, times[1].SessionID)
	}
	if times[1].AvailableSlots != 6 {
		t.Errorf("want 6 remaining slots, got %d", times[1].AvailableSlots)
	}
}

func TestConcurrentCreatesHoldCapacity(t *testing.T) {
	const capacity = 10
	store := storeWithSession(capacity)
	policy := defaultPolicy()
	policy.CountTentative = true
	svc := newTestService(t, store, policy, nil)

	const attempts = 25
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(context.Background(), Principal{ID: uint64(i + 1)}, 1, 1)
		}(i)
	}
	wg.Wait()

	admitted := 0
	for _, err := range errs {
		switch {
		case err == nil:
			admitted++
		case errors.Is(err, ErrCapacityExceeded):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if admitted != capacity {
		t.Errorf("want exactly %d admissions, got %d", capacity, admitted)
	}
	if got := store.reservedSum(1, true); got != capacity {
		t.Errorf("occupancy %d exceeds capacity %d", got, capacity)
	}
}
