package revision

import (
	"context"
	"errors"
	"testing"
	"time"

	"redline/internal/config"
	"redline/internal/domain"
	"redline/internal/domain/models"
)

type lockFixture struct {
	svc  *lockService
	revs *fakeRevisionRepo
	docs *fakeDocService
	now  time.Time
}

func newLockFixture(t *testing.T) *lockFixture {
	t.Helper()
	revs := newFakeRevisionRepo()
	first := &models.Revision{UUID: "sent-1", Text: "Locked goods.", Accepted: true}
	if err := revs.Create(context.Background(), first); err != nil {
		t.Fatalf("create revision: %v", err)
	}
	docs := &fakeDocService{doc: &models.Document{
		ID:        "doc-1",
		Sentences: []string{first.ID},
	}}
	fx := &lockFixture{
		revs: revs,
		docs: docs,
		now:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	fx.svc = &lockService{
		revisions: revs,
		documents: docs,
		txManager: fakeTxManager{},
		notifier:  &fakeNotifier{},
		logger:    testLogger(),
		now:       func() time.Time { return fx.now },
	}
	return fx
}

func (fx *lockFixture) revisionID() string {
	return fx.docs.doc.Sentences[0]
}

func TestAcquireAndStatus(t *testing.T) {
	fx := newLockFixture(t)

	lock, err := fx.svc.Acquire(context.Background(), "doc-1", 0, "alice", 30*time.Minute)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if lock.Owner != "alice" || lock.Lifetime != 30*time.Minute {
		t.Errorf("lock = %+v", lock)
	}

	status, err := fx.svc.Status(context.Background(), "doc-1", 0)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status == nil || status.Owner != "alice" {
		t.Errorf("status = %+v, want alice's lock", status)
	}
}

func TestAcquireDefaultLifetime(t *testing.T) {
	fx := newLockFixture(t)

	lock, err := fx.svc.Acquire(context.Background(), "doc-1", 0, "alice", 0)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if lock.Lifetime != config.DefaultLockLifetime {
		t.Errorf("lifetime = %v, want default %v", lock.Lifetime, config.DefaultLockLifetime)
	}
}

func TestAcquireRequiresOwner(t *testing.T) {
	fx := newLockFixture(t)
	_, err := fx.svc.Acquire(context.Background(), "doc-1", 0, "", time.Minute)
	if !errors.Is(err, domain.ErrValidation) {
		t.Errorf("err = %v, want ErrValidation", err)
	}
}

func TestAcquireConflictNamesHolder(t *testing.T) {
	fx := newLockFixture(t)
	if _, err := fx.svc.Acquire(context.Background(), "doc-1", 0, "alice", time.Hour); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	_, err := fx.svc.Acquire(context.Background(), "doc-1", 0, "bob", time.Hour)
	var lockErr *domain.LockConflictError
	if !errors.As(err, &lockErr) {
		t.Fatalf("err = %v, want LockConflictError", err)
	}
	if lockErr.Owner != "alice" {
		t.Errorf("conflict owner = %s, want alice", lockErr.Owner)
	}
	if !errors.Is(err, domain.ErrLockHeld) {
		t.Errorf("conflict must match ErrLockHeld")
	}
}

func TestAcquireAfterExpiry(t *testing.T) {
	fx := newLockFixture(t)
	if _, err := fx.svc.Acquire(context.Background(), "doc-1", 0, "alice", time.Minute); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	// No explicit release: past the lifetime the lock counts as absent.
	fx.now = fx.now.Add(2 * time.Minute)
	lock, err := fx.svc.Acquire(context.Background(), "doc-1", 0, "bob", time.Minute)
	if err != nil {
		t.Fatalf("acquire after expiry: %v", err)
	}
	if lock.Owner != "bob" {
		t.Errorf("owner = %s, want bob", lock.Owner)
	}
}

func TestReleaseByHolder(t *testing.T) {
	fx := newLockFixture(t)
	if _, err := fx.svc.Acquire(context.Background(), "doc-1", 0, "alice", time.Hour); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	if err := fx.svc.Release(context.Background(), "doc-1", 0, "alice"); err != nil {
		t.Fatalf("release: %v", err)
	}
	status, err := fx.svc.Status(context.Background(), "doc-1", 0)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status != nil {
		t.Errorf("status = %+v, want unlocked", status)
	}
}

func TestReleaseByOtherUser(t *testing.T) {
	fx := newLockFixture(t)
	if _, err := fx.svc.Acquire(context.Background(), "doc-1", 0, "alice", time.Hour); err != nil {
		t.Fatalf("acquire: %v", err)
	}

	err := fx.svc.Release(context.Background(), "doc-1", 0, "bob")
	var lockErr *domain.LockConflictError
	if !errors.As(err, &lockErr) || lockErr.Owner != "alice" {
		t.Errorf("err = %v, want conflict naming alice", err)
	}

	// The holder's lock survives the failed release.
	stored, _ := fx.revs.GetByID(context.Background(), fx.revisionID())
	if stored.Lock == nil || stored.Lock.Owner != "alice" {
		t.Errorf("lock lost after failed release: %+v", stored.Lock)
	}
}

func TestReleaseNothingHeld(t *testing.T) {
	fx := newLockFixture(t)
	err := fx.svc.Release(context.Background(), "doc-1", 0, "alice")
	if !errors.Is(err, domain.ErrLockHeld) {
		t.Errorf("err = %v, want ErrLockHeld", err)
	}
}

func TestReleaseExpiredPersistsClear(t *testing.T) {
	fx := newLockFixture(t)
	if _, err := fx.svc.Acquire(context.Background(), "doc-1", 0, "alice", time.Minute); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	fx.now = fx.now.Add(2 * time.Minute)

	err := fx.svc.Release(context.Background(), "doc-1", 0, "alice")
	if !errors.Is(err, domain.ErrLockHeld) {
		t.Fatalf("err = %v, want ErrLockHeld", err)
	}
	stored, _ := fx.revs.GetByID(context.Background(), fx.revisionID())
	if stored.Lock != nil {
		t.Errorf("expired lock clear not persisted by failed release")
	}
}

func TestStatusClearsExpired(t *testing.T) {
	fx := newLockFixture(t)
	if _, err := fx.svc.Acquire(context.Background(), "doc-1", 0, "alice", time.Minute); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	fx.now = fx.now.Add(2 * time.Minute)

	status, err := fx.svc.Status(context.Background(), "doc-1", 0)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status != nil {
		t.Errorf("status = %+v, want nil for expired lock", status)
	}
	stored, _ := fx.revs.GetByID(context.Background(), fx.revisionID())
	if stored.Lock != nil {
		t.Errorf("expired lock clear not persisted by status read")
	}
}
