package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/avolkov/sonet/internal/cache"
	"github.com/avolkov/sonet/internal/models"
	"github.com/avolkov/sonet/internal/mq"
)

// MockPostRepository is a mock implementation of repository.PostRepository
type MockPostRepository struct {
	mock.Mock
}

func (m *MockPostRepository) Create(ctx context.Context, post *models.Post) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *MockPostRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockPostRepository) FindByIDOnMaster(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Post), args.Error(1)
}

func (m *MockPostRepository) Update(ctx context.Context, post *models.Post) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *MockPostRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPostRepository) FindByAuthor(ctx context.Context, authorID uuid.UUID) ([]*models.Post, error) {
	args := m.Called(ctx, authorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Post), args.Error(1)
}

func (m *MockPostRepository) TopPostsByAuthors(ctx context.Context, authorIDs []uuid.UUID, limit int) ([]*models.Post, error) {
	args := m.Called(ctx, authorIDs, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Post), args.Error(1)
}

// MockFriendStorage is a mock implementation of repository.FriendStorage
type MockFriendStorage struct {
	mock.Mock
}

func (m *MockFriendStorage) FriendsOf(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockFriendStorage) FollowersOf(ctx context.Context, friendID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, friendID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockFriendStorage) EdgeExists(ctx context.Context, userID, friendID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID, friendID)
	return args.Bool(0), args.Error(1)
}

func (m *MockFriendStorage) Create(ctx context.Context, friend *models.Friend) error {
	args := m.Called(ctx, friend)
	return args.Error(0)
}

func (m *MockFriendStorage) Delete(ctx context.Context, userID, friendID uuid.UUID) error {
	args := m.Called(ctx, userID, friendID)
	return args.Error(0)
}

// MockUserRepository is a mock implementation of repository.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context) ([]*models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockUserRepository) Search(ctx context.Context, firstName, secondName string) ([]*models.User, error) {
	args := m.Called(ctx, firstName, secondName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

// MockSessionStorage is a mock implementation of repository.SessionStorage
type MockSessionStorage struct {
	mock.Mock
}

func (m *MockSessionStorage) Create(ctx context.Context, session *models.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionStorage) FindByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *MockSessionStorage) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockPublisher is a mock implementation of mq.EventPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishPostEvent(ctx context.Context, kind mq.PostEventKind, post *models.Post) error {
	args := m.Called(ctx, kind, post)
	return args.Error(0)
}

// fakeCache is an in-memory cache.Service with real list and set semantics,
// used where the tests care about resulting cache state rather than call
// counts.
type fakeCache struct {
	mu    sync.Mutex
	data  map[string]string
	lists map[string][]string
	sets  map[string]map[string]struct{}
	hash  map[string]map[string]string

	failAll bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		data:  make(map[string]string),
		lists: make(map[string][]string),
		sets:  make(map[string]map[string]struct{}),
		hash:  make(map[string]map[string]string),
	}
}

var errCacheDown = fmt.Errorf("cache unavailable")

func (f *fakeCache) Exists(ctx context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return false, errCacheDown
	}
	if _, ok := f.data[key]; ok {
		return true, nil
	}
	_, ok := f.lists[key]
	return ok, nil
}

func (f *fakeCache) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return "", errCacheDown
	}
	v, ok := f.data[key]
	if !ok {
		return "", cache.ErrCacheMiss
	}
	return v, nil
}

func (f *fakeCache) Set(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errCacheDown
	}
	f.data[key] = value
	return nil
}

func (f *fakeCache) Delete(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errCacheDown
	}
	for _, key := range keys {
		delete(f.data, key)
		delete(f.lists, key)
		delete(f.sets, key)
		delete(f.hash, key)
	}
	return nil
}

func (f *fakeCache) LPush(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errCacheDown
	}
	f.lists[key] = append([]string{value}, f.lists[key]...)
	return nil
}

func (f *fakeCache) RPush(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errCacheDown
	}
	f.lists[key] = append(f.lists[key], value)
	return nil
}

func (f *fakeCache) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return nil, errCacheDown
	}
	list := f.lists[key]
	if start < 0 {
		start = 0
	}
	if stop >= int64(len(list)) {
		stop = int64(len(list)) - 1
	}
	if start > stop {
		return []string{}, nil
	}
	out := make([]string, 0, stop-start+1)
	out = append(out, list[start:stop+1]...)
	return out, nil
}

func (f *fakeCache) LTrim(ctx context.Context, key string, start, stop int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errCacheDown
	}
	list := f.lists[key]
	if start < 0 {
		start = 0
	}
	if stop >= int64(len(list)) {
		stop = int64(len(list)) - 1
	}
	if start > stop {
		f.lists[key] = nil
		return nil
	}
	f.lists[key] = list[start : stop+1]
	return nil
}

func (f *fakeCache) LRem(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errCacheDown
	}
	kept := f.lists[key][:0]
	for _, v := range f.lists[key] {
		if v != value {
			kept = append(kept, v)
		}
	}
	f.lists[key] = kept
	return nil
}

func (f *fakeCache) LLen(ctx context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return 0, errCacheDown
	}
	return int64(len(f.lists[key])), nil
}

func (f *fakeCache) SAdd(ctx context.Context, key string, members ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sets[key] == nil {
		f.sets[key] = make(map[string]struct{})
	}
	for _, m := range members {
		f.sets[key][m] = struct{}{}
	}
	return nil
}

func (f *fakeCache) SRem(ctx context.Context, key string, members ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range members {
		delete(f.sets[key], m)
	}
	return nil
}

func (f *fakeCache) SMembers(ctx context.Context, key string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	members := make([]string, 0, len(f.sets[key]))
	for m := range f.sets[key] {
		members = append(members, m)
	}
	return members, nil
}

func (f *fakeCache) SIsMember(ctx context.Context, key, member string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.sets[key][member]
	return ok, nil
}

func (f *fakeCache) HSet(ctx context.Context, key, field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hash[key] == nil {
		f.hash[key] = make(map[string]string)
	}
	f.hash[key][field] = value
	return nil
}

func (f *fakeCache) HGet(ctx context.Context, key, field string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.hash[key][field]
	if !ok {
		return "", cache.ErrCacheMiss
	}
	return v, nil
}

func (f *fakeCache) HDel(ctx context.Context, key string, fields ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, field := range fields {
		delete(f.hash[key], field)
	}
	return nil
}

func (f *fakeCache) listLen(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.lists[key])
}

func (f *fakeCache) hasKey(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; ok {
		return true
	}
	_, ok := f.lists[key]
	return ok
}
