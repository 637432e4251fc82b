package commonality

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Azee177/jianli/internal/jds"
)

func newTestService() *Service {
	svc := NewService(NewMemoryRepo())
	svc.Now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return svc
}

func seedAnalysis(t *testing.T, svc *Service, userID string) Analysis {
	t.Helper()
	a, err := svc.Analyze(context.Background(), userID, []jds.Item{
		item("jd-1", "Bachelor degree", "3 years experience", "Go", "Good communication"),
		item("jd-2", "Python", "Teamwork"),
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	return a
}

func TestAnalyzeRequiresItems(t *testing.T) {
	svc := newTestService()
	if _, err := svc.Analyze(context.Background(), "u1", nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestLockAllRejectsLaterEdits(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	a := seedAnalysis(t, svc, "u1")

	title := "Degree"
	if _, err := svc.UpdateDimension(ctx, "u1", a.ID, a.Dimensions[0].ID, Patch{Title: &title}); err != nil {
		t.Fatalf("UpdateDimension before lock: %v", err)
	}

	res, err := svc.LockAll(ctx, "u1", a.ID)
	if err != nil {
		t.Fatalf("LockAll: %v", err)
	}
	if res.LockedCount != len(a.Dimensions) {
		t.Fatalf("expected %d locked, got %d", len(a.Dimensions), res.LockedCount)
	}

	for _, d := range a.Dimensions {
		if _, err := svc.UpdateDimension(ctx, "u1", a.ID, d.ID, Patch{Title: &title}); !errors.Is(err, ErrLocked) {
			t.Fatalf("expected ErrLocked for %s, got %v", d.ID, err)
		}
	}

	got, err := svc.Get(ctx, "u1", a.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	for _, d := range got.Dimensions {
		if !d.Locked {
			t.Fatalf("dimension %s not locked", d.ID)
		}
	}
	if got.Dimensions[0].Title != "Degree" {
		t.Fatalf("expected edit before lock to persist, got %q", got.Dimensions[0].Title)
	}
}

func TestLockAllIsIdempotent(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	a := seedAnalysis(t, svc, "u1")

	first, err := svc.LockAll(ctx, "u1", a.ID)
	if err != nil {
		t.Fatalf("LockAll: %v", err)
	}
	svc.Now = func() time.Time { return time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC) }
	second, err := svc.LockAll(ctx, "u1", a.ID)
	if err != nil {
		t.Fatalf("second LockAll: %v", err)
	}
	if !second.LockedAt.Equal(first.LockedAt) || second.LockedCount != first.LockedCount {
		t.Fatalf("expected repeated lock to return original stamp, got %+v vs %+v", second, first)
	}
}

func TestConcurrentLockAndEditNeverInterleave(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	a := seedAnalysis(t, svc, "u1")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = svc.LockAll(ctx, "u1", a.ID)
		}()
		go func() {
			defer wg.Done()
			imp := 0.4
			_, _ = svc.UpdateDimension(ctx, "u1", a.ID, a.Dimensions[0].ID, Patch{Importance: &imp})
		}()
	}
	wg.Wait()

	got, _ := svc.Get(ctx, "u1", a.ID)
	if !got.Locked() {
		t.Fatalf("expected analysis locked")
	}
	for _, d := range got.Dimensions {
		if !d.Locked {
			t.Fatalf("half-locked analysis: %+v", got.Dimensions)
		}
	}
}

func TestUpdateDimensionValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	a := seedAnalysis(t, svc, "u1")

	bad := 1.5
	if _, err := svc.UpdateDimension(ctx, "u1", a.ID, a.Dimensions[0].ID, Patch{Importance: &bad}); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	ok := 0.2
	dim, err := svc.UpdateDimension(ctx, "u1", a.ID, a.Dimensions[0].ID, Patch{Importance: &ok})
	if err != nil {
		t.Fatalf("UpdateDimension: %v", err)
	}
	if dim.Importance != 0.2 || dim.Frequency != a.Dimensions[0].Frequency {
		t.Fatalf("expected importance edit only, got %+v", dim)
	}
	if _, err := svc.UpdateDimension(ctx, "u1", a.ID, "dim-missing", Patch{Importance: &ok}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetScopedToOwner(t *testing.T) {
	svc := newTestService()
	a := seedAnalysis(t, svc, "u1")
	if _, err := svc.Get(context.Background(), "u2", a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other user, got %v", err)
	}
	if _, err := svc.LockAll(context.Background(), "u2", a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound locking other user's analysis, got %v", err)
	}
}

// hookedRepo runs before once, ahead of the first Update, to let another
// writer sharing the same store get in between a read and a write.
type hookedRepo struct {
	Repo
	once   sync.Once
	before func()
}

func (r *hookedRepo) Update(ctx context.Context, a Analysis) error {
	r.once.Do(r.before)
	return r.Repo.Update(ctx, a)
}

func TestLockFromAnotherWriterSurvivesStaleEdit(t *testing.T) {
	shared := NewMemoryRepo()
	other := NewService(shared)
	seeder := NewService(shared)
	a := seedAnalysis(t, seeder, "u1")
	ctx := context.Background()

	hooked := &hookedRepo{Repo: shared}
	hooked.before = func() {
		if _, err := other.LockAll(ctx, "u1", a.ID); err != nil {
			t.Errorf("other LockAll: %v", err)
		}
	}
	editor := NewService(hooked)

	title := "Edited"
	if _, err := editor.UpdateDimension(ctx, "u1", a.ID, a.Dimensions[0].ID, Patch{Title: &title}); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	got, _ := shared.Get(ctx, a.ID)
	if !got.Locked() || !got.Dimensions[0].Locked || got.Dimensions[0].Title == "Edited" {
		t.Fatalf("lock was undone: lockedAt=%v dim=%+v", got.LockedAt, got.Dimensions[0])
	}
}

func TestConcurrentEditsFromTwoWritersBothPersist(t *testing.T) {
	shared := NewMemoryRepo()
	a := seedAnalysis(t, NewService(shared), "u1")
	ctx := context.Background()
	other := NewService(shared)

	otherTitle := "From other"
	hooked := &hookedRepo{Repo: shared}
	hooked.before = func() {
		if _, err := other.UpdateDimension(ctx, "u1", a.ID, a.Dimensions[1].ID, Patch{Title: &otherTitle}); err != nil {
			t.Errorf("other UpdateDimension: %v", err)
		}
	}
	editor := NewService(hooked)

	title := "From editor"
	if _, err := editor.UpdateDimension(ctx, "u1", a.ID, a.Dimensions[0].ID, Patch{Title: &title}); err != nil {
		t.Fatalf("UpdateDimension: %v", err)
	}
	got, _ := shared.Get(ctx, a.ID)
	if got.Dimensions[0].Title != title || got.Dimensions[1].Title != otherTitle {
		t.Fatalf("expected both edits, got %q and %q", got.Dimensions[0].Title, got.Dimensions[1].Title)
	}
}

func TestLockAllAfterAnotherWriterLockedReturnsTheirStamp(t *testing.T) {
	shared := NewMemoryRepo()
	a := seedAnalysis(t, NewService(shared), "u1")
	ctx := context.Background()

	other := NewService(shared)
	other.Now = func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) }
	var theirs LockResult
	hooked := &hookedRepo{Repo: shared}
	hooked.before = func() {
		var err error
		if theirs, err = other.LockAll(ctx, "u1", a.ID); err != nil {
			t.Errorf("other LockAll: %v", err)
		}
	}
	mine := NewService(hooked)
	mine.Now = func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) }

	res, err := mine.LockAll(ctx, "u1", a.ID)
	if err != nil {
		t.Fatalf("LockAll: %v", err)
	}
	if !res.LockedAt.Equal(theirs.LockedAt) {
		t.Fatalf("expected the first lock's stamp %v, got %v", theirs.LockedAt, res.LockedAt)
	}
}
