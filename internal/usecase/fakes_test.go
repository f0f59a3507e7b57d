package usecase_test

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"go-profile-backend/internal/domain"
	"go-profile-backend/pkg/apperror"
	"go-profile-backend/pkg/security/antivirus"

	"github.com/stretchr/testify/mock"
)

// fakeResumeRepo is an in-memory ResumeRepository. WithProfileLock serializes writers with a
// single mutex and restores a snapshot when fn fails.
type fakeResumeRepo struct {
	lock sync.Mutex

	mu        sync.Mutex
	rows      map[int64]domain.Resume
	nextID    int64
	clock     time.Time
	failWrite error
}

func newFakeResumeRepo() *fakeResumeRepo {
	return &fakeResumeRepo{
		rows:  make(map[int64]domain.Resume),
		clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// seed inserts rows as given, without enforcing any invariant.
func (f *fakeResumeRepo) seed(rows ...domain.Resume) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range rows {
		f.rows[r.ID] = r
		if r.ID > f.nextID {
			f.nextID = r.ID
		}
	}
}

func (f *fakeResumeRepo) tick() time.Time {
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fakeResumeRepo) byProfile(profileID int64) []domain.Resume {
	var out []domain.Resume
	for _, r := range f.rows {
		if r.ProfileID == profileID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (f *fakeResumeRepo) ListByProfile(ctx context.Context, profileID int64) ([]domain.Resume, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byProfile(profileID), nil
}

func (f *fakeResumeRepo) GetByID(ctx context.Context, profileID, id int64) (*domain.Resume, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rows[id]
	if !ok || r.ProfileID != profileID {
		return nil, nil
	}
	return &r, nil
}

func (f *fakeResumeRepo) GetDefault(ctx context.Context, profileID int64) (*domain.Resume, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.byProfile(profileID) {
		if r.IsDefault {
			return &r, nil
		}
	}
	return nil, nil
}

func (f *fakeResumeRepo) WithProfileLock(ctx context.Context, profileID int64, fn func(tx domain.ResumeTx) error) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	f.mu.Lock()
	snapshot := make(map[int64]domain.Resume, len(f.rows))
	for k, v := range f.rows {
		snapshot[k] = v
	}
	f.mu.Unlock()

	if err := fn(&fakeResumeTx{f}); err != nil {
		f.mu.Lock()
		f.rows = snapshot
		f.mu.Unlock()
		return err
	}
	return nil
}

type fakeResumeTx struct {
	f *fakeResumeRepo
}

func (t *fakeResumeTx) GetByID(ctx context.Context, profileID, id int64) (*domain.Resume, error) {
	return t.f.GetByID(ctx, profileID, id)
}

func (t *fakeResumeTx) GetDefault(ctx context.Context, profileID int64) (*domain.Resume, error) {
	return t.f.GetDefault(ctx, profileID)
}

func (t *fakeResumeTx) GetByTitle(ctx context.Context, profileID int64, title string) (*domain.Resume, error) {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	for _, r := range t.f.byProfile(profileID) {
		if r.Title == title {
			return &r, nil
		}
	}
	return nil, nil
}

func (t *fakeResumeTx) MostRecent(ctx context.Context, profileID int64) (*domain.Resume, error) {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	rows := t.f.byProfile(profileID)
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (t *fakeResumeTx) Count(ctx context.Context, profileID int64) (int, error) {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	return len(t.f.byProfile(profileID)), nil
}

func (t *fakeResumeTx) Create(ctx context.Context, r *domain.Resume) error {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	if t.f.failWrite != nil {
		return t.f.failWrite
	}
	for _, existing := range t.f.byProfile(r.ProfileID) {
		if existing.Title == r.Title || (existing.IsDefault && r.IsDefault) {
			return apperror.Conflict("conflict").Wrap(domain.ErrIntegrityViolation)
		}
	}
	t.f.nextID++
	r.ID = t.f.nextID
	r.UpdatedAt = t.f.tick()
	t.f.rows[r.ID] = *r
	return nil
}

func (t *fakeResumeTx) ReplaceFile(ctx context.Context, r *domain.Resume) error {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	if t.f.failWrite != nil {
		return t.f.failWrite
	}
	row, ok := t.f.rows[r.ID]
	if !ok {
		return fmt.Errorf("resume %d not found", r.ID)
	}
	row.StorageKey = r.StorageKey
	row.OriginalFilename = r.OriginalFilename
	row.UpdatedAt = t.f.tick()
	t.f.rows[r.ID] = row
	r.UpdatedAt = row.UpdatedAt
	return nil
}

func (t *fakeResumeTx) Delete(ctx context.Context, profileID, id int64) error {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	delete(t.f.rows, id)
	return nil
}

func (t *fakeResumeTx) SetDefault(ctx context.Context, profileID, id int64) error {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	for k, r := range t.f.rows {
		if r.ProfileID == profileID && r.IsDefault && k != id {
			r.IsDefault = false
			t.f.rows[k] = r
		}
	}
	r := t.f.rows[id]
	r.IsDefault = true
	r.UpdatedAt = t.f.tick()
	t.f.rows[id] = r
	return nil
}

func (t *fakeResumeTx) DeleteAll(ctx context.Context, profileID int64) ([]domain.Resume, error) {
	t.f.mu.Lock()
	defer t.f.mu.Unlock()
	removed := t.f.byProfile(profileID)
	for _, r := range removed {
		delete(t.f.rows, r.ID)
	}
	return removed, nil
}

type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	return m.Called(ctx, key, data, contentType).Error(0)
}

func (m *MockObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockObjectStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockObjectStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Error(1)
}

func (m *MockObjectStore) HealthCheck(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// putKeys returns the keys passed to successful and failed Put calls, in order.
func (m *MockObjectStore) putKeys() []string {
	var keys []string
	for _, c := range m.Calls {
		if c.Method == "Put" {
			keys = append(keys, c.Arguments.String(1))
		}
	}
	return keys
}

type MockProfileRepo struct {
	mock.Mock
}

func (m *MockProfileRepo) Exists(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockProfileRepo) GetByUserID(ctx context.Context, userID int64) (*domain.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *MockProfileRepo) Create(ctx context.Context, userID int64) (*domain.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event domain.ResumeEvent) error {
	return m.Called(ctx, event).Error(0)
}

type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) GetByAuth0ID(ctx context.Context, auth0ID string) (*domain.User, error) {
	args := m.Called(ctx, auth0ID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepo) Create(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepo) UpdateEmail(ctx context.Context, id int64, email string) error {
	return m.Called(ctx, id, email).Error(0)
}

type stubScanner struct {
	result antivirus.ScanResult
}

func (s stubScanner) Scan(ctx context.Context, filename string, data io.Reader) antivirus.ScanResult {
	return s.result
}
func (s stubScanner) Name() string                       { return "stub" }
func (s stubScanner) Available(ctx context.Context) bool { return true }
