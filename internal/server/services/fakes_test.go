package services

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/classgate/internal/common"
	"github.com/dmitrijs2005/classgate/internal/dbx"
	"github.com/dmitrijs2005/classgate/internal/server/models"
	"github.com/dmitrijs2005/classgate/internal/server/repositories/admins"
	"github.com/dmitrijs2005/classgate/internal/server/repositories/batches"
	"github.com/dmitrijs2005/classgate/internal/server/repositories/serverconfig"
	usersrepo "github.com/dmitrijs2005/classgate/internal/server/repositories/users"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

type fakeUsersRepo struct {
	byID    map[string]*models.User
	byPhone map[string]*models.User

	createErr error
	saveErr   error
	findErr   error
	countOut  int

	created     []*models.User
	saved       []models.User
	enrollSaved []models.User
}

func newFakeUsersRepo(users ...*models.User) *fakeUsersRepo {
	r := &fakeUsersRepo{byID: map[string]*models.User{}, byPhone: map[string]*models.User{}}
	for _, u := range users {
		r.byID[u.ID] = u
		r.byPhone[u.PhoneNumber] = u
	}
	return r
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	u.ID = "new-user"
	f.created = append(f.created, u)
	f.byID[u.ID] = u
	f.byPhone[u.PhoneNumber] = u
	return u, nil
}

func (f *fakeUsersRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	u, ok := f.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsersRepo) FindByPhone(ctx context.Context, phone string) (*models.User, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	u, ok := f.byPhone[phone]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsersRepo) Save(ctx context.Context, u *models.User) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, *u)
	return nil
}

func (f *fakeUsersRepo) SaveEnrollments(ctx context.Context, u *models.User) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.enrollSaved = append(f.enrollSaved, *u)
	return nil
}

func (f *fakeUsersRepo) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	out := []*models.User{}
	for _, u := range f.byID {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeUsersRepo) Count(ctx context.Context) (int, error) { return f.countOut, nil }

type fakeBatchesRepo struct {
	byBatchID map[string]*models.Batch
	updated   []*models.Batch
	deleted   []string
}

func (f *fakeBatchesRepo) Create(ctx context.Context, b *models.Batch) (*models.Batch, error) {
	if _, ok := f.byBatchID[b.BatchID]; ok {
		return nil, common.ErrAlreadyExists
	}
	b.ID = "id-" + b.BatchID
	f.byBatchID[b.BatchID] = b
	return b, nil
}

func (f *fakeBatchesRepo) FindByID(ctx context.Context, id string) (*models.Batch, error) {
	for _, b := range f.byBatchID {
		if b.ID == id {
			cp := *b
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeBatchesRepo) FindByBatchID(ctx context.Context, batchID string) (*models.Batch, error) {
	b, ok := f.byBatchID[batchID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *b
	return &cp, nil
}

func (f *fakeBatchesRepo) List(ctx context.Context) ([]*models.Batch, error) {
	out := []*models.Batch{}
	for _, b := range f.byBatchID {
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeBatchesRepo) Update(ctx context.Context, b *models.Batch) error {
	f.updated = append(f.updated, b)
	return nil
}

func (f *fakeBatchesRepo) Delete(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeAdminsRepo struct {
	byName    map[string]*models.Admin
	createErr error
}

func (f *fakeAdminsRepo) Create(ctx context.Context, a *models.Admin) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.byName[a.Username] = a
	return nil
}

func (f *fakeAdminsRepo) FindByUsername(ctx context.Context, username string) (*models.Admin, error) {
	a, ok := f.byName[username]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return a, nil
}

type fakeServerConfigRepo struct {
	current *models.ServerConfig
}

func (f *fakeServerConfigRepo) Get(ctx context.Context) (*models.ServerConfig, error) {
	cp := *f.current
	return &cp, nil
}

func (f *fakeServerConfigRepo) Upsert(ctx context.Context, c *models.ServerConfig) error {
	cp := *c
	f.current = &cp
	return nil
}

type fakeRepoManager struct {
	u  *fakeUsersRepo
	b  *fakeBatchesRepo
	a  *fakeAdminsRepo
	sc *fakeServerConfigRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error     { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository           { return m.u }
func (m *fakeRepoManager) Batches(db dbx.DBTX) batches.Repository           { return m.b }
func (m *fakeRepoManager) Admins(db dbx.DBTX) admins.Repository             { return m.a }
func (m *fakeRepoManager) ServerConfig(db dbx.DBTX) serverconfig.Repository { return m.sc }
