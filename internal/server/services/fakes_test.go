package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/docbox/internal/common"
	"github.com/dmitrijs2005/docbox/internal/dbx"
	"github.com/dmitrijs2005/docbox/internal/server/events"
	"github.com/dmitrijs2005/docbox/internal/server/models"
	"github.com/dmitrijs2005/docbox/internal/server/repositories/files"
	"github.com/dmitrijs2005/docbox/internal/server/repositories/folders"
	"github.com/dmitrijs2005/docbox/internal/server/repositories/generatedfiles"
	"github.com/dmitrijs2005/docbox/internal/server/repositories/presignedtasks"
	"github.com/dmitrijs2005/docbox/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/docbox/internal/server/search"
	"github.com/dmitrijs2005/docbox/internal/server/storage"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// memStore is an in-memory tenant database. Rows are held by value so a
// snapshot is a plain map copy.
type memStore struct {
	mu        sync.Mutex
	folders   map[uuid.UUID]models.Folder
	tasks     map[uuid.UUID]models.PresignedUploadTask
	files     map[uuid.UUID]models.File
	generated []models.GeneratedFile

	failFileCreate error
}

func newMemStore() *memStore {
	return &memStore{
		folders: map[uuid.UUID]models.Folder{},
		tasks:   map[uuid.UUID]models.PresignedUploadTask{},
		files:   map[uuid.UUID]models.File{},
	}
}

type memSnapshot struct {
	tasks     map[uuid.UUID]models.PresignedUploadTask
	files     map[uuid.UUID]models.File
	generated []models.GeneratedFile
}

func (s *memStore) snapshot() memSnapshot {
	snap := memSnapshot{
		tasks:     make(map[uuid.UUID]models.PresignedUploadTask, len(s.tasks)),
		files:     make(map[uuid.UUID]models.File, len(s.files)),
		generated: append([]models.GeneratedFile(nil), s.generated...),
	}
	for k, v := range s.tasks {
		snap.tasks[k] = v
	}
	for k, v := range s.files {
		snap.files[k] = v
	}
	return snap
}

func (s *memStore) restore(snap memSnapshot) {
	s.tasks = snap.tasks
	s.files = snap.files
	s.generated = snap.generated
}

func (s *memStore) addFolder(scope string) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.New()
	s.folders[id] = models.Folder{ID: id, DocumentBox: scope, Name: "Root"}
	return id
}

func (s *memStore) putTask(t models.PresignedUploadTask) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = t
}

func (s *memStore) task(id uuid.UUID) (models.PresignedUploadTask, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	return t, ok
}

func (s *memStore) fileCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

func (s *memStore) generatedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.generated)
}

// memTx marks repositories used inside useMemTx; the store lock is held.
type memTx struct{ dbx.DBTX }

type memRepo struct {
	s      *memStore
	locked bool
}

func (r memRepo) lock() func() {
	if r.locked {
		return func() {}
	}
	r.s.mu.Lock()
	return r.s.mu.Unlock
}

type memFolders struct {
	folders.Repository
	memRepo
}

func (r *memFolders) FindInScope(_ context.Context, scope string, id uuid.UUID) (*models.Folder, error) {
	defer r.lock()()
	f, ok := r.s.folders[id]
	if !ok || f.DocumentBox != scope {
		return nil, common.ErrorNotFound
	}
	return &f, nil
}

type memFiles struct {
	files.Repository
	memRepo
}

func (r *memFiles) Create(_ context.Context, f *models.File) error {
	defer r.lock()()
	if r.s.failFileCreate != nil {
		return r.s.failFileCreate
	}
	r.s.files[f.ID] = *f
	return nil
}

func (r *memFiles) FindInScope(_ context.Context, scope string, id uuid.UUID) (*models.File, error) {
	defer r.lock()()
	f, ok := r.s.files[id]
	if !ok || r.s.folders[f.FolderID].DocumentBox != scope {
		return nil, common.ErrorNotFound
	}
	return &f, nil
}

func (r *memFiles) FindByID(_ context.Context, id uuid.UUID) (*models.File, error) {
	defer r.lock()()
	f, ok := r.s.files[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &f, nil
}

type memGenerated struct {
	generatedfiles.Repository
	memRepo
}

func (r *memGenerated) Create(_ context.Context, g *models.GeneratedFile) error {
	defer r.lock()()
	r.s.generated = append(r.s.generated, *g)
	return nil
}

func (r *memGenerated) ListByFile(_ context.Context, fileID uuid.UUID) ([]*models.GeneratedFile, error) {
	defer r.lock()()
	out := []*models.GeneratedFile{}
	for _, g := range r.s.generated {
		if g.FileID == fileID {
			g := g
			out = append(out, &g)
		}
	}
	return out, nil
}

type memTasks struct {
	presignedtasks.Repository
	memRepo
}

func (r *memTasks) Create(_ context.Context, t *models.PresignedUploadTask) error {
	defer r.lock()()
	r.s.tasks[t.ID] = *t
	return nil
}

func (r *memTasks) FindPendingByFileKey(_ context.Context, key string) (*models.PresignedUploadTask, error) {
	defer r.lock()()
	for _, t := range r.s.tasks {
		if t.FileKey == key && t.Status == models.TaskPending {
			return &t, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memTasks) FindInScope(_ context.Context, scope string, id uuid.UUID) (*models.PresignedUploadTask, error) {
	defer r.lock()()
	t, ok := r.s.tasks[id]
	if !ok || t.DocumentBox != scope {
		return nil, common.ErrorNotFound
	}
	return &t, nil
}

func (r *memTasks) MarkCompleted(_ context.Context, id, fileID uuid.UUID) error {
	defer r.lock()()
	t, ok := r.s.tasks[id]
	if !ok || t.Status != models.TaskPending {
		return common.ErrNotPending
	}
	t.Status = models.TaskCompleted
	t.FileID = &fileID
	r.s.tasks[id] = t
	return nil
}

func (r *memTasks) MarkFailed(_ context.Context, id uuid.UUID, reason string) error {
	defer r.lock()()
	t, ok := r.s.tasks[id]
	if !ok || t.Status != models.TaskPending {
		return common.ErrNotPending
	}
	t.Status = models.TaskFailed
	t.Error = &reason
	r.s.tasks[id] = t
	return nil
}

func (r *memTasks) FindExpired(_ context.Context, now time.Time) ([]*models.PresignedUploadTask, error) {
	defer r.lock()()
	var out []*models.PresignedUploadTask
	for _, t := range r.s.tasks {
		if t.ExpiresAt.Before(now) {
			t := t
			out = append(out, &t)
		}
	}
	return out, nil
}

func (r *memTasks) Delete(_ context.Context, id uuid.UUID) (models.TaskStatus, error) {
	defer r.lock()()
	t, ok := r.s.tasks[id]
	if !ok {
		return "", common.ErrorNotFound
	}
	delete(r.s.tasks, id)
	return t.Status, nil
}

type memRepoManager struct {
	repomanager.RepositoryManager
	store *memStore
}

func (m *memRepoManager) repo(db dbx.DBTX) memRepo {
	_, inTx := db.(*memTx)
	return memRepo{s: m.store, locked: inTx}
}

func (m *memRepoManager) Folders(db dbx.DBTX) folders.Repository {
	return &memFolders{memRepo: m.repo(db)}
}

func (m *memRepoManager) Files(db dbx.DBTX) files.Repository {
	return &memFiles{memRepo: m.repo(db)}
}

func (m *memRepoManager) GeneratedFiles(db dbx.DBTX) generatedfiles.Repository {
	return &memGenerated{memRepo: m.repo(db)}
}

func (m *memRepoManager) PresignedTasks(db dbx.DBTX) presignedtasks.Repository {
	return &memTasks{memRepo: m.repo(db)}
}

// useMemTx runs transactions under the store lock and restores the
// snapshot taken at begin when fn fails.
func useMemTx(t *testing.T, s *memStore) {
	t.Helper()
	orig := withTx
	withTx = func(ctx context.Context, _ dbx.DB, fn func(ctx context.Context, tx dbx.DBTX) error) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		snap := s.snapshot()
		if err := fn(ctx, &memTx{}); err != nil {
			s.restore(snap)
			return err
		}
		return nil
	}
	t.Cleanup(func() { withTx = orig })
}

// useObjectIDs makes newObjectID return ids in order, then fresh ULIDs.
func useObjectIDs(t *testing.T, ids ...string) {
	t.Helper()
	orig := newObjectID
	var mu sync.Mutex
	newObjectID = func() string {
		mu.Lock()
		defer mu.Unlock()
		if len(ids) == 0 {
			return ulid.Make().String()
		}
		id := ids[0]
		ids = ids[1:]
		return id
	}
	t.Cleanup(func() { newObjectID = orig })
}

var errNoSuchKey = errors.New("NoSuchKey")

type memStorage struct {
	storage.Storage

	mu         sync.Mutex
	objects    map[string][]byte
	deleted    []string
	deleteErr  map[string]error
	putErr     error
	presignErr error
	getExpiry  time.Duration
}

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}, deleteErr: map[string]error{}}
}

func (m *memStorage) PresignPut(_ context.Context, key string, size int64, mime string, expiry time.Duration) (*storage.PresignedRequest, error) {
	if m.presignErr != nil {
		return nil, m.presignErr
	}
	return &storage.PresignedRequest{
		Method:    "PUT",
		URI:       "https://bucket.test/" + key,
		Headers:   map[string]string{"content-type": mime},
		ExpiresAt: testNow.Add(expiry),
	}, nil
}

func (m *memStorage) PresignGet(_ context.Context, key string, expiry time.Duration) (*storage.PresignedRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getExpiry = expiry
	return &storage.PresignedRequest{Method: "GET", URI: "https://bucket.test/" + key, Headers: map[string]string{}}, nil
}

// upload simulates the client performing the signed PUT.
func (m *memStorage) upload(key string, body []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = body
}

func (m *memStorage) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

func (m *memStorage) keysWithPrefix(prefix string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out
}

func (m *memStorage) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[key]
	if !ok {
		return nil, errNoSuchKey
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *memStorage) Put(_ context.Context, key, _ string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return m.putErr
	}
	m.objects[key] = body
	return nil
}

func (m *memStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.deleteErr[key]; err != nil {
		return err
	}
	delete(m.objects, key)
	m.deleted = append(m.deleted, key)
	return nil
}

type recordingIndex struct {
	mu   sync.Mutex
	docs []search.Document
	err  error
}

func (r *recordingIndex) IndexDocument(_ context.Context, doc search.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = append(r.docs, doc)
	return r.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}
