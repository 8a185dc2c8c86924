package calendar

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/keyxmakerx/roadtothesky/internal/apperror"
)

// --- Mocks ---

// mockCalendarRepo implements CalendarRepository for testing. Saves are
// recorded per campaign.
type mockCalendarRepo struct {
	getFn    func(ctx context.Context, campaignID string) (*StoredCalendar, error)
	saveFn   func(ctx context.Context, sc *StoredCalendar) error
	deleteFn func(ctx context.Context, campaignID string) error

	mu    sync.Mutex
	saves []*StoredCalendar
}

func (m *mockCalendarRepo) Get(ctx context.Context, campaignID string) (*StoredCalendar, error) {
	if m.getFn != nil {
		return m.getFn(ctx, campaignID)
	}
	return nil, nil
}

func (m *mockCalendarRepo) Save(ctx context.Context, sc *StoredCalendar) error {
	if m.saveFn != nil {
		if err := m.saveFn(ctx, sc); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves = append(m.saves, sc)
	return nil
}

func (m *mockCalendarRepo) Delete(ctx context.Context, campaignID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, campaignID)
	}
	return nil
}

func (m *mockCalendarRepo) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.saves)
}

func (m *mockCalendarRepo) lastSave() *StoredCalendar {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.saves) == 0 {
		return nil
	}
	return m.saves[len(m.saves)-1]
}

// mockWorldClock records world time writes.
type mockWorldClock struct {
	mu   sync.Mutex
	sets []int64
}

func (m *mockWorldClock) WorldTime(ctx context.Context, campaignID string) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sets) == 0 {
		return 0, false, nil
	}
	return m.sets[len(m.sets)-1], true, nil
}

func (m *mockWorldClock) SetWorldTime(ctx context.Context, campaignID string, seconds int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets = append(m.sets, seconds)
	return nil
}

func (m *mockWorldClock) setCalls() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.sets...)
}

// mockNotifier records published events.
type mockNotifier struct {
	mu     sync.Mutex
	events []DateTimeChangeEvent
}

func (m *mockNotifier) PublishDateTimeChange(ctx context.Context, ev DateTimeChangeEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *mockNotifier) published() []DateTimeChangeEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]DateTimeChangeEvent(nil), m.events...)
}

type serviceFixture struct {
	svc      *calendarService
	repo     *mockCalendarRepo
	clock    *mockWorldClock
	notifier *mockNotifier
}

func newTestService(repo *mockCalendarRepo) *serviceFixture {
	if repo == nil {
		repo = &mockCalendarRepo{}
	}
	f := &serviceFixture{repo: repo, clock: &mockWorldClock{}, notifier: &mockNotifier{}}
	f.svc = NewCalendarService(repo, ServiceConfig{Clock: f.clock, Notifier: f.notifier}).(*calendarService)
	return f
}

// storedWith returns a repository holding cfg for every campaign.
func storedWith(cfg Config) *mockCalendarRepo {
	return &mockCalendarRepo{
		getFn: func(ctx context.Context, campaignID string) (*StoredCalendar, error) {
			return &StoredCalendar{CampaignID: campaignID, CalendarID: cfg.ID, Name: cfg.Name, Config: cfg}, nil
		},
	}
}

var (
	gm     = User{ID: "gm-1", Role: RoleGM}
	player = User{ID: "p-1", Role: RolePlayer}
)

// assertAppError checks that err is an AppError with the expected status code.
func assertAppError(t *testing.T, err error, expectedCode int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %d, got nil", expectedCode)
	}
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.AppError, got %T: %v", err, err)
	}
	if appErr.Code != expectedCode {
		t.Errorf("expected status %d, got %d (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

// --- GetSnapshot ---

func TestGetSnapshot_DefaultCalendar(t *testing.T) {
	f := newTestService(nil)

	snap, err := f.svc.GetSnapshot(context.Background(), "camp-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.CalendarID == "" {
		t.Error("default calendar has no ID")
	}
	if snap.Current != (DateTime{Year: EpochYear}) {
		t.Errorf("current = %+v", snap.Current)
	}
	if snap.Season.Name != "Spring" || snap.Sunrise != 6*secondsPerHour || snap.Sunset != 19*secondsPerHour {
		t.Errorf("season = %s %d-%d", snap.Season.Name, snap.Sunrise, snap.Sunset)
	}
	if snap.Weekday.Name != "Sunday" || snap.MonthName != "Dewfall" || snap.MonthLength != 30 {
		t.Errorf("labels = %s/%s/%d", snap.Weekday.Name, snap.MonthName, snap.MonthLength)
	}
	if snap.TotalMonths != MonthsPerYear || snap.MaxDay != (Date{Year: EpochYear, Month: 11, Day: 29}) {
		t.Errorf("range = %d months, max %+v", snap.TotalMonths, snap.MaxDay)
	}
	if len(snap.Moons) != int(moonCount) {
		t.Errorf("got %d moons", len(snap.Moons))
	}
	if len(snap.PartialWarning) != 0 {
		t.Errorf("unexpected warnings: %v", snap.PartialWarning)
	}

	again, _ := f.svc.GetSnapshot(context.Background(), "camp-1")
	if again.CalendarID != snap.CalendarID {
		t.Error("calendar not cached between calls")
	}
}

func TestGetSnapshot_StoredCalendarWithWarnings(t *testing.T) {
	f := newTestService(storedWith(Config{ID: "cal-9", Name: "Stored"}))

	snap, err := f.svc.GetSnapshot(context.Background(), "camp-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.CalendarID != "cal-9" || snap.Name != "Stored" {
		t.Errorf("identity = %s/%s", snap.CalendarID, snap.Name)
	}
	if len(snap.PartialWarning) == 0 {
		t.Error("expected load warnings")
	}
}

func TestGetSnapshot_RepoError(t *testing.T) {
	repoErr := errors.New("db down")
	f := newTestService(&mockCalendarRepo{
		getFn: func(ctx context.Context, campaignID string) (*StoredCalendar, error) {
			return nil, repoErr
		},
	})

	if _, err := f.svc.GetSnapshot(context.Background(), "camp-1"); !errors.Is(err, repoErr) {
		t.Errorf("expected wrapped repo error, got %v", err)
	}
}

// --- ChangeDateTime ---

func TestChangeDateTime_GameMaster(t *testing.T) {
	f := newTestService(nil)
	ctx := context.Background()

	changed, err := f.svc.ChangeDateTime(ctx, "camp-1", gm, DateTimeParts{Day: intPtr(1), Hour: intPtr(2)}, DefaultChangeOptions())
	if err != nil || !changed {
		t.Fatalf("ChangeDateTime = %v, %v", changed, err)
	}
	f.svc.wait()

	want := int64(SecondsPerDay + 2*secondsPerHour)
	if got := f.repo.lastSave(); got == nil || got.CurrentSeconds != want {
		t.Errorf("saved = %+v, want seconds %d", got, want)
	}
	if got := f.clock.setCalls(); len(got) != 1 || got[0] != want {
		t.Errorf("world clock writes = %v", got)
	}
	events := f.notifier.published()
	if len(events) != 1 {
		t.Fatalf("got %d events", len(events))
	}
	if events[0].Diff != want || events[0].Date.Day != 1 || events[0].CampaignID != "camp-1" {
		t.Errorf("event = %+v", events[0])
	}
}

func TestChangeDateTime_PermissionDenied(t *testing.T) {
	f := newTestService(nil)

	changed, err := f.svc.ChangeDateTime(context.Background(), "camp-1", player, DateTimeParts{Day: intPtr(1)}, DefaultChangeOptions())
	if err != nil || changed {
		t.Fatalf("ChangeDateTime = %v, %v; want false, nil", changed, err)
	}
	f.svc.wait()
	if f.repo.saveCount() != 0 || len(f.notifier.published()) != 0 {
		t.Error("denied change had side effects")
	}

	allowed, _ := f.svc.CanChangeDateTime(context.Background(), "camp-1", player)
	if allowed {
		t.Error("player allowed by default")
	}
}

func TestChangeDateTime_PermissionGrants(t *testing.T) {
	cfg := New("cal-1", "Road").ToConfig()
	cfg.General.ChangeDateTime = PermissionMatrix{Player: true, Users: []string{"t-2"}}
	f := newTestService(storedWith(cfg))
	ctx := context.Background()

	tests := []struct {
		name string
		user User
		want bool
	}{
		{"player by role", player, true},
		{"trusted by id", User{ID: "t-2", Role: RoleTrusted}, true},
		{"trusted without grant", User{ID: "t-3", Role: RoleTrusted}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changed, err := f.svc.ChangeDateTime(ctx, "camp-1", tt.user, DateTimeParts{Minute: intPtr(1)}, ChangeOptions{})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if changed != tt.want {
				t.Errorf("changed = %v, want %v", changed, tt.want)
			}
		})
	}
}

func TestChangeDateTime_EmptyInterval(t *testing.T) {
	f := newTestService(nil)

	changed, err := f.svc.ChangeDateTime(context.Background(), "camp-1", gm, DateTimeParts{Day: intPtr(0)}, DefaultChangeOptions())
	if err != nil || changed {
		t.Errorf("ChangeDateTime = %v, %v; want false, nil", changed, err)
	}
}

func TestChangeDateTime_RejectedRolloverNotCommitted(t *testing.T) {
	f := newTestService(nil)
	ctx := context.Background()

	last := DateTimeParts{Month: intPtr(11), Day: intPtr(29), Hour: intPtr(23)}
	if _, err := f.svc.SetDateTime(ctx, "camp-1", gm, last, ChangeOptions{}); err != nil {
		t.Fatal(err)
	}
	f.svc.wait()
	published := len(f.notifier.published())

	changed, err := f.svc.ChangeDateTime(ctx, "camp-1", gm, DateTimeParts{Hour: intPtr(2)}, DefaultChangeOptions())
	if err != nil || changed {
		t.Fatalf("ChangeDateTime = %v, %v; want false, nil", changed, err)
	}
	f.svc.wait()
	if f.repo.saveCount() != 0 || len(f.clock.setCalls()) != 0 {
		t.Error("rejected change was saved or synced")
	}
	if len(f.notifier.published()) != published {
		t.Error("rejected change was announced")
	}
	snap, _ := f.svc.GetSnapshot(ctx, "camp-1")
	if snap.Current != (DateTime{Year: EpochYear, Month: 11, Day: 29, Hour: 23}) {
		t.Errorf("current = %+v", snap.Current)
	}
}

func TestChangeDateTime_NoSaveNoSync(t *testing.T) {
	f := newTestService(nil)

	changed, err := f.svc.ChangeDateTime(context.Background(), "camp-1", gm, DateTimeParts{Hour: intPtr(1)}, ChangeOptions{})
	if err != nil || !changed {
		t.Fatalf("ChangeDateTime = %v, %v", changed, err)
	}
	f.svc.wait()
	if f.repo.saveCount() != 0 {
		t.Error("saved with Save off")
	}
	if len(f.clock.setCalls()) != 0 {
		t.Error("synced with Sync off")
	}
	if len(f.notifier.published()) != 1 {
		t.Error("change not announced")
	}
}

func TestChangeDateTime_NoWorldTimePush(t *testing.T) {
	for _, mode := range []string{WorldTimeNone, WorldTimeThirdParty} {
		t.Run(mode, func(t *testing.T) {
			cfg := New("cal-1", "Road").ToConfig()
			cfg.General.WorldTimeIntegration = mode
			f := newTestService(storedWith(cfg))

			if _, err := f.svc.ChangeDateTime(context.Background(), "camp-1", gm, DateTimeParts{Hour: intPtr(1)}, DefaultChangeOptions()); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			f.svc.wait()
			if len(f.clock.setCalls()) != 0 {
				t.Errorf("mode %s pushed world time", mode)
			}
			if f.repo.saveCount() != 1 {
				t.Errorf("got %d saves", f.repo.saveCount())
			}
		})
	}
}

func TestChangeDateTime_LastSaveWins(t *testing.T) {
	f := newTestService(nil)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if _, err := f.svc.ChangeDateTime(ctx, "camp-1", gm, DateTimeParts{Day: intPtr(1)}, ChangeOptions{Save: true}); err != nil {
			t.Fatalf("change %d: %v", i, err)
		}
	}
	f.svc.wait()

	if got := f.repo.lastSave(); got == nil || got.CurrentSeconds != 10*SecondsPerDay {
		t.Errorf("last save = %+v, want %d seconds", got, 10*SecondsPerDay)
	}
}

func TestChangeDateTime_SaveFailureKeepsEngineState(t *testing.T) {
	f := newTestService(&mockCalendarRepo{
		saveFn: func(ctx context.Context, sc *StoredCalendar) error {
			return errors.New("disk full")
		},
	})
	ctx := context.Background()

	if changed, err := f.svc.ChangeDateTime(ctx, "camp-1", gm, DateTimeParts{Day: intPtr(3)}, DefaultChangeOptions()); err != nil || !changed {
		t.Fatalf("ChangeDateTime = %v, %v", changed, err)
	}
	f.svc.wait()

	snap, _ := f.svc.GetSnapshot(ctx, "camp-1")
	if snap.Current.Day != 3 {
		t.Errorf("day = %d, want 3", snap.Current.Day)
	}
}

func TestFlush(t *testing.T) {
	release := make(chan struct{})
	f := newTestService(&mockCalendarRepo{
		saveFn: func(ctx context.Context, sc *StoredCalendar) error {
			<-release
			return nil
		},
	})
	ctx := context.Background()

	if _, err := f.svc.ChangeDateTime(ctx, "camp-1", gm, DateTimeParts{Day: intPtr(1)}, ChangeOptions{Save: true}); err != nil {
		t.Fatal(err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := f.svc.Flush(cancelled); !errors.Is(err, context.Canceled) {
		t.Errorf("Flush with a pending save = %v, want context.Canceled", err)
	}

	close(release)
	if err := f.svc.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if f.repo.saveCount() != 1 {
		t.Errorf("got %d saves", f.repo.saveCount())
	}
}

// --- SetDateTime ---

func TestSetDateTime(t *testing.T) {
	f := newTestService(nil)
	ctx := context.Background()

	changed, err := f.svc.SetDateTime(ctx, "camp-1", gm, DateTimeParts{Month: intPtr(3), Day: intPtr(10), Hour: intPtr(18)}, DefaultChangeOptions())
	if err != nil || !changed {
		t.Fatalf("SetDateTime = %v, %v", changed, err)
	}
	f.svc.wait()

	snap, _ := f.svc.GetSnapshot(ctx, "camp-1")
	want := DateTime{Year: EpochYear, Month: 3, Day: 10, Hour: 18}
	if snap.Current != want {
		t.Errorf("current = %+v, want %+v", snap.Current, want)
	}
	if snap.Season.Name != "Summer" {
		t.Errorf("season = %s", snap.Season.Name)
	}
	if got := f.clock.setCalls(); len(got) != 1 || got[0] != snap.Seconds {
		t.Errorf("world clock writes = %v, want [%d]", got, snap.Seconds)
	}
}

// --- SetFromWorldTime ---

func TestSetFromWorldTime(t *testing.T) {
	f := newTestService(nil)
	ctx := context.Background()
	secs := int64(45*SecondsPerDay + 30)

	changed, err := f.svc.SetFromWorldTime(ctx, "camp-1", secs)
	if err != nil || !changed {
		t.Fatalf("SetFromWorldTime = %v, %v", changed, err)
	}
	f.svc.wait()

	snap, _ := f.svc.GetSnapshot(ctx, "camp-1")
	if snap.Seconds != secs || snap.Current.Month != 1 || snap.Current.Day != 15 {
		t.Errorf("snapshot = %d %+v", snap.Seconds, snap.Current)
	}
	if len(f.clock.setCalls()) != 0 {
		t.Error("world time change echoed back to the world clock")
	}
	if f.repo.saveCount() != 1 {
		t.Errorf("got %d saves", f.repo.saveCount())
	}

	changed, _ = f.svc.SetFromWorldTime(ctx, "camp-1", secs)
	if changed {
		t.Error("unchanged world time reported a change")
	}
}

func TestSetFromWorldTime_SelfModeIgnores(t *testing.T) {
	cfg := New("cal-1", "Road").ToConfig()
	cfg.General.WorldTimeIntegration = WorldTimeSelf
	f := newTestService(storedWith(cfg))

	changed, err := f.svc.SetFromWorldTime(context.Background(), "camp-1", 500)
	if err != nil || changed {
		t.Errorf("SetFromWorldTime = %v, %v; want false, nil", changed, err)
	}
}

// --- MovePointer ---

func TestMovePointer(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name      string
		kind      PointerKind
		unit      string
		amount    int
		want      Pointer
		wantError int
	}{
		{"current rejected", PointerCurrent, UnitDay, 1, Pointer{}, http.StatusBadRequest},
		{"visible has no day", PointerVisible, UnitDay, 1, Pointer{}, http.StatusBadRequest},
		{"bad unit", PointerVisible, "week", 1, Pointer{}, http.StatusBadRequest},
		{"visible month", PointerVisible, UnitMonth, 2, Pointer{Kind: PointerVisible, Month: 2, Day: -1}, 0},
		{"visible past end", PointerVisible, UnitYear, 1, Pointer{}, http.StatusConflict},
		{"selected starts from current", PointerSelected, UnitDay, 31, Pointer{Kind: PointerSelected, Month: 1, Day: 1}, 0},
		{"selected before epoch", PointerSelected, UnitDay, -1, Pointer{}, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestService(nil)
			got, err := f.svc.MovePointer(ctx, "camp-1", tt.kind, tt.unit, tt.amount)
			if tt.wantError != 0 {
				assertAppError(t, err, tt.wantError)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("pointer = %+v, want %+v", got, tt.want)
			}
		})
	}
}

// --- MoonPhases ---

func TestMoonPhases(t *testing.T) {
	f := newTestService(nil)

	phases, err := f.svc.MoonPhases(context.Background(), "camp-1", Date{Year: EpochYear, Month: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(phases) != int(moonCount) {
		t.Fatalf("got %d phases", len(phases))
	}
	if phases[MoonHarvest].Key != "harvest" || !phases[MoonHarvest].CurrentPhase.IsFull() {
		t.Errorf("harvest = %+v", phases[MoonHarvest])
	}
	if phases[MoonEye].CurrentPhase != DefaultPhase {
		t.Errorf("eye outside history = %+v", phases[MoonEye].CurrentPhase)
	}
}

// --- PushCycle / DeleteCycle ---

func TestPushCycle(t *testing.T) {
	ctx := context.Background()

	t.Run("requires game master", func(t *testing.T) {
		f := newTestService(nil)
		assertAppError(t, f.svc.PushCycle(ctx, "camp-1", player, MoonHarvest, 30), http.StatusForbidden)
	})
	t.Run("rejects non-positive length", func(t *testing.T) {
		f := newTestService(nil)
		assertAppError(t, f.svc.PushCycle(ctx, "camp-1", gm, MoonLantern, 0), http.StatusUnprocessableEntity)
	})
	t.Run("harvest adds a month", func(t *testing.T) {
		f := newTestService(nil)
		if err := f.svc.PushCycle(ctx, "camp-1", gm, MoonHarvest, 28); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		f.svc.wait()

		snap, _ := f.svc.GetSnapshot(ctx, "camp-1")
		if snap.TotalMonths != 13 || snap.MaxDay != (Date{Year: 411, Month: 0, Day: 27}) {
			t.Errorf("range = %d months, max %+v", snap.TotalMonths, snap.MaxDay)
		}
		saved := f.repo.lastSave()
		if saved == nil || len(saved.Config.Moons[MoonHarvest].CycleLengths) != 13 {
			t.Errorf("saved = %+v", saved)
		}
	})
}

func TestDeleteCycle(t *testing.T) {
	ctx := context.Background()
	f := newTestService(nil)

	assertAppError(t, f.svc.DeleteCycle(ctx, "camp-1", player, MoonLantern, 0), http.StatusForbidden)
	assertAppError(t, f.svc.DeleteCycle(ctx, "camp-1", gm, MoonLantern, 4), http.StatusUnprocessableEntity)

	if err := f.svc.PushCycle(ctx, "camp-1", gm, MoonLantern, 9); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.DeleteCycle(ctx, "camp-1", gm, MoonLantern, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.svc.wait()

	cfg, _ := f.svc.ExportConfig(ctx, "camp-1")
	if got := cfg.Moons[MoonLantern].CycleLengths; len(got) != 1 || got[0] != 9 {
		t.Errorf("lantern cycles = %v, want [9]", got)
	}
}

// --- ImportConfig ---

func TestImportConfig_RequiresGameMaster(t *testing.T) {
	f := newTestService(nil)

	_, err := f.svc.ImportConfig(context.Background(), "camp-1", player, New("x", "Road").ToConfig())
	assertAppError(t, err, http.StatusForbidden)
}

func TestImportConfig_KeepsCalendarID(t *testing.T) {
	f := newTestService(nil)
	ctx := context.Background()

	before, _ := f.svc.GetSnapshot(ctx, "camp-1")

	cfg := New("", "Imported").ToConfig()
	cfg.Moons[MoonHarvest].CycleLengths = []int{20, 20, 20}
	cfg.Current = DateTime{Year: EpochYear, Month: 2, Day: 5}

	warnings, err := f.svc.ImportConfig(ctx, "camp-1", gm, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}

	saved := f.repo.lastSave()
	if saved == nil || saved.CalendarID != before.CalendarID || saved.Name != "Imported" {
		t.Fatalf("saved = %+v", saved)
	}
	snap, _ := f.svc.GetSnapshot(ctx, "camp-1")
	if snap.TotalMonths != 3 || snap.Current.Month != 2 || snap.Current.Day != 5 {
		t.Errorf("snapshot = %d months, %+v", snap.TotalMonths, snap.Current)
	}
}

func TestImportConfig_SaveError(t *testing.T) {
	f := newTestService(&mockCalendarRepo{
		saveFn: func(ctx context.Context, sc *StoredCalendar) error {
			return errors.New("disk full")
		},
	})

	if _, err := f.svc.ImportConfig(context.Background(), "camp-1", gm, New("cal-1", "Road").ToConfig()); err == nil {
		t.Fatal("expected error")
	}
}

func TestResetCalendar(t *testing.T) {
	ctx := context.Background()
	var deleted []string
	f := newTestService(&mockCalendarRepo{
		deleteFn: func(ctx context.Context, campaignID string) error {
			deleted = append(deleted, campaignID)
			return nil
		},
	})

	assertAppError(t, f.svc.ResetCalendar(ctx, "camp-1", player), http.StatusForbidden)

	if _, err := f.svc.ChangeDateTime(ctx, "camp-1", gm, DateTimeParts{Day: intPtr(5)}, ChangeOptions{}); err != nil {
		t.Fatal(err)
	}
	before, _ := f.svc.GetSnapshot(ctx, "camp-1")

	if err := f.svc.ResetCalendar(ctx, "camp-1", gm); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(deleted) != 1 || deleted[0] != "camp-1" {
		t.Errorf("deleted = %v", deleted)
	}

	after, _ := f.svc.GetSnapshot(ctx, "camp-1")
	if after.Current != (DateTime{Year: EpochYear}) || after.CalendarID == before.CalendarID {
		t.Errorf("after reset = %s %+v", after.CalendarID, after.Current)
	}
}

func TestResetCalendar_LaterChangesStillSave(t *testing.T) {
	ctx := context.Background()
	f := newTestService(nil)
	opts := ChangeOptions{Save: true}

	if _, err := f.svc.ChangeDateTime(ctx, "camp-1", gm, DateTimeParts{Day: intPtr(1)}, opts); err != nil {
		t.Fatal(err)
	}
	f.svc.wait()
	if err := f.svc.ResetCalendar(ctx, "camp-1", gm); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.ChangeDateTime(ctx, "camp-1", gm, DateTimeParts{Day: intPtr(2)}, opts); err != nil {
		t.Fatal(err)
	}
	f.svc.wait()

	if n := f.repo.saveCount(); n != 2 {
		t.Fatalf("got %d saves, want 2", n)
	}
	if got := f.repo.lastSave().CurrentSeconds; got != 2*SecondsPerDay {
		t.Errorf("saved seconds = %d, want %d", got, 2*SecondsPerDay)
	}
}

func TestResetCalendar_DeleteError(t *testing.T) {
	f := newTestService(&mockCalendarRepo{
		deleteFn: func(ctx context.Context, campaignID string) error {
			return errors.New("connection refused")
		},
	})
	if err := f.svc.ResetCalendar(context.Background(), "camp-1", gm); err == nil {
		t.Fatal("expected error")
	}
}
