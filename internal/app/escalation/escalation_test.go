package escalation

import (
	"testing"
	"time"

	"github.com/someoneelse131/purfacted-sub002/internal/domain"
	"github.com/someoneelse131/purfacted-sub002/internal/infra/sqlite"
)

var testNow = time.Date(2025, 7, 15, 12, 0, 0, 0, time.UTC)

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestController(t *testing.T, db *sqlite.DB) *Controller {
	t.Helper()
	c := NewController(db, DefaultConfig())
	c.now = func() time.Time { return testNow }
	return c
}

func seedActor(t *testing.T, db *sqlite.DB, id string, role domain.Role) {
	t.Helper()
	err := db.UpsertActor(domain.Actor{
		ID:        id,
		Email:     id + "@example.org",
		Role:      role,
		Verified:  true,
		CreatedAt: testNow.Add(-90 * 24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("UpsertActor(%s) error: %v", id, err)
	}
}

// ─── Ban Level Tests ────────────────────────────────────────────────────────

func TestNextBanLevel(t *testing.T) {
	cases := []struct{ current, want int }{
		{0, 1},
		{1, 2},
		{2, 3},
		{3, 3}, // permanent stays permanent
		{7, 3},
		{-1, 1},
	}
	for _, tc := range cases {
		if got := NextBanLevel(tc.current); got != tc.want {
			t.Errorf("NextBanLevel(%d) = %d, want %d", tc.current, got, tc.want)
		}
	}
}

func TestExpiryFor(t *testing.T) {
	cfg := DefaultConfig()

	if exp := cfg.ExpiryFor(1, testNow); exp == nil || !exp.Equal(testNow.Add(7*24*time.Hour)) {
		t.Errorf("ExpiryFor(1) = %v, want now+7d", exp)
	}
	if exp := cfg.ExpiryFor(2, testNow); exp == nil || !exp.Equal(testNow.Add(30*24*time.Hour)) {
		t.Errorf("ExpiryFor(2) = %v, want now+30d", exp)
	}
	if exp := cfg.ExpiryFor(3, testNow); exp != nil {
		t.Errorf("ExpiryFor(3) = %v, want nil (permanent)", exp)
	}
}

func TestShouldFlag(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.ShouldFlag(4) {
		t.Error("ShouldFlag(4) = true, want false below the threshold")
	}
	if !cfg.ShouldFlag(5) {
		t.Error("ShouldFlag(5) = false, want true at the threshold")
	}
	if !cfg.ShouldFlag(12) {
		t.Error("ShouldFlag(12) = false, want true")
	}
}

// ─── Escalation Tests ───────────────────────────────────────────────────────

func TestEscalate_ProgressesOneLevelPerOffense(t *testing.T) {
	db := newTestDB(t)
	c := newTestController(t, db)
	seedActor(t, db, "repeat-offender", domain.RoleVerified)

	for i, want := range []int{1, 2, 3, 3} {
		esc, err := c.Escalate("repeat-offender", "")
		if err != nil {
			t.Fatalf("Escalate() #%d error: %v", i+1, err)
		}
		if esc.Level != want {
			t.Errorf("offense %d level = %d, want %d", i+1, esc.Level, want)
		}
		if want < domain.MaxBanLevel && esc.Expires == nil {
			t.Errorf("offense %d expires = nil, want a deadline", i+1)
		}
		if want == domain.MaxBanLevel && esc.Expires != nil {
			t.Errorf("offense %d expires = %v, want nil", i+1, esc.Expires)
		}
	}

	a, err := db.GetActor("repeat-offender")
	if err != nil {
		t.Fatalf("GetActor() error: %v", err)
	}
	if a.BanLevel != 3 || !a.Banned(testNow.Add(100*365*24*time.Hour)) {
		t.Errorf("actor = level %d, want permanent level 3", a.BanLevel)
	}
}

func TestEscalate_PermanentBanDenylists(t *testing.T) {
	db := newTestDB(t)
	c := newTestController(t, db)
	seedActor(t, db, "troll", domain.RoleVerified)
	err := db.UpsertActor(domain.Actor{
		ID:        "troll",
		Email:     " Troll+spam@Example.ORG ",
		Role:      domain.RoleVerified,
		Verified:  true,
		BanLevel:  2,
		CreatedAt: testNow.Add(-90 * 24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("UpsertActor() error: %v", err)
	}

	ipHash := HashIP("203.0.113.9")
	esc, err := c.Escalate("troll", ipHash)
	if err != nil {
		t.Fatalf("Escalate() error: %v", err)
	}
	if esc.Level != 3 {
		t.Fatalf("level = %d, want 3", esc.Level)
	}

	// The denylist holds the normalized address: lowercased, trimmed,
	// plus-tag stripped.
	listed, err := db.IsDenylisted("troll@example.org", "")
	if err != nil {
		t.Fatalf("IsDenylisted() error: %v", err)
	}
	if !listed {
		t.Error("normalized email not denylisted")
	}
	listed, err = db.IsDenylisted("someone-else@example.org", ipHash)
	if err != nil {
		t.Fatalf("IsDenylisted() error: %v", err)
	}
	if !listed {
		t.Error("hashed IP not denylisted")
	}
	listed, err = db.IsDenylisted("innocent@example.org", HashIP("198.51.100.1"))
	if err != nil {
		t.Fatalf("IsDenylisted() error: %v", err)
	}
	if listed {
		t.Error("unrelated identity denylisted")
	}
}

func TestEscalate_PermanentLevelIsTerminal(t *testing.T) {
	db := newTestDB(t)
	c := newTestController(t, db)
	seedActor(t, db, "lifer", domain.RoleVerified)
	if err := db.SetBan("lifer", domain.MaxBanLevel, nil); err != nil {
		t.Fatalf("SetBan() error: %v", err)
	}

	esc, err := c.Escalate("lifer", HashIP("203.0.113.9"))
	if err != nil {
		t.Fatalf("Escalate() error: %v", err)
	}
	if esc.Level != domain.MaxBanLevel || esc.Expires != nil {
		t.Errorf("escalation = %+v, want terminal level %d", esc, domain.MaxBanLevel)
	}

	// No ban or denylist write happens past the permanent level.
	listed, err := db.IsDenylisted("lifer@example.org", HashIP("203.0.113.9"))
	if err != nil {
		t.Fatalf("IsDenylisted() error: %v", err)
	}
	if listed {
		t.Error("escalating past the permanent level wrote a denylist entry")
	}
}

func TestEscalate_UnknownActor(t *testing.T) {
	db := newTestDB(t)
	c := newTestController(t, db)

	if _, err := c.Escalate("ghost", ""); err != domain.ErrActorNotFound {
		t.Errorf("Escalate(ghost) error = %v, want ErrActorNotFound", err)
	}
}

// ─── Flag Tests ─────────────────────────────────────────────────────────────

func TestFlagActor_Dedupes(t *testing.T) {
	db := newTestDB(t)
	c := newTestController(t, db)
	seedActor(t, db, "alice", domain.RoleVerified)

	flag, err := c.FlagActor("alice", "veto abuse")
	if err != nil {
		t.Fatalf("FlagActor() error: %v", err)
	}
	if flag.Status != domain.FlagPending {
		t.Errorf("flag status = %q, want pending", flag.Status)
	}

	if _, err := c.FlagActor("alice", "again"); err != domain.ErrFlagAlreadyOpen {
		t.Errorf("second flag error = %v, want ErrFlagAlreadyOpen", err)
	}
}

func TestAutoFlagSweep(t *testing.T) {
	db := newTestDB(t)
	c := newTestController(t, db)
	seedActor(t, db, "abuser", domain.RoleVerified)
	seedActor(t, db, "clean", domain.RoleVerified)
	seedActor(t, db, "near-miss", domain.RoleVerified)

	insertFails := func(actorID string, n int) {
		for i := 0; i < n; i++ {
			rec := domain.ActionRecord{
				ID:        actorID + "-fail-" + string(rune('a'+i)),
				ActorID:   actorID,
				Kind:      domain.ActionVetoFail,
				Points:    -6,
				CreatedAt: testNow,
			}
			if _, err := db.ApplyTrustAction(rec); err != nil {
				t.Fatalf("ApplyTrustAction() error: %v", err)
			}
		}
	}
	insertFails("abuser", 5)
	insertFails("near-miss", 4)

	opened, err := c.AutoFlagSweep()
	if err != nil {
		t.Fatalf("AutoFlagSweep() error: %v", err)
	}
	if len(opened) != 1 || opened[0].ActorID != "abuser" {
		t.Fatalf("opened = %+v, want one flag for abuser", opened)
	}

	// A repeat sweep skips the already-open flag instead of duplicating it.
	opened, err = c.AutoFlagSweep()
	if err != nil {
		t.Fatalf("AutoFlagSweep() (repeat) error: %v", err)
	}
	if len(opened) != 0 {
		t.Errorf("repeat sweep opened %d flags, want 0", len(opened))
	}
}

func TestResolveFlag(t *testing.T) {
	db := newTestDB(t)
	c := newTestController(t, db)
	seedActor(t, db, "alice", domain.RoleVerified)
	seedActor(t, db, "mod", domain.RoleModerator)

	flag, err := c.FlagActor("alice", "veto abuse")
	if err != nil {
		t.Fatalf("FlagActor() error: %v", err)
	}

	closed, esc, err := c.ResolveFlag(flag.ID, "mod", true)
	if err != nil {
		t.Fatalf("ResolveFlag() error: %v", err)
	}
	if closed.Status != domain.FlagResolved {
		t.Errorf("flag status = %q, want resolved", closed.Status)
	}
	if esc == nil || esc.Level != 1 {
		t.Errorf("escalation = %+v, want level 1 ban", esc)
	}

	a, _ := db.GetActor("alice")
	if a.BanLevel != 1 {
		t.Errorf("ban level = %d, want 1", a.BanLevel)
	}
}

func TestResolveFlag_DismissalSkipsBan(t *testing.T) {
	db := newTestDB(t)
	c := newTestController(t, db)
	seedActor(t, db, "alice", domain.RoleVerified)
	seedActor(t, db, "mod", domain.RoleModerator)

	flag, err := c.FlagActor("alice", "looked suspicious")
	if err != nil {
		t.Fatalf("FlagActor() error: %v", err)
	}

	closed, esc, err := c.ResolveFlag(flag.ID, "mod", false)
	if err != nil {
		t.Fatalf("ResolveFlag() error: %v", err)
	}
	if closed.Status != domain.FlagDismissed || esc != nil {
		t.Errorf("dismissal = (%q, %+v), want (dismissed, nil)", closed.Status, esc)
	}

	a, _ := db.GetActor("alice")
	if a.BanLevel != 0 {
		t.Errorf("ban level = %d, want 0 after dismissal", a.BanLevel)
	}
}

func TestResolveFlag_Errors(t *testing.T) {
	db := newTestDB(t)
	c := newTestController(t, db)
	seedActor(t, db, "alice", domain.RoleVerified)
	seedActor(t, db, "bob", domain.RoleVerified)
	seedActor(t, db, "mod", domain.RoleModerator)

	flag, err := c.FlagActor("alice", "veto abuse")
	if err != nil {
		t.Fatalf("FlagActor() error: %v", err)
	}

	if _, _, err := c.ResolveFlag(flag.ID, "bob", true); err != domain.ErrNotModerator {
		t.Errorf("non-moderator resolve error = %v, want ErrNotModerator", err)
	}
	if _, _, err := c.ResolveFlag("no-such-flag", "mod", true); err != domain.ErrFlagNotFound {
		t.Errorf("missing flag error = %v, want ErrFlagNotFound", err)
	}

	if _, _, err := c.ResolveFlag(flag.ID, "mod", false); err != nil {
		t.Fatalf("ResolveFlag() error: %v", err)
	}
	if _, _, err := c.ResolveFlag(flag.ID, "mod", true); err != domain.ErrFlagClosed {
		t.Errorf("re-resolve error = %v, want ErrFlagClosed", err)
	}
}

// ─── Normalization Tests ────────────────────────────────────────────────────

func TestNormalizeEmail(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Alice@Example.ORG", "alice@example.org"},
		{"  bob@example.org  ", "bob@example.org"},
		{"carol+spam@example.org", "carol@example.org"},
		{"d+a+b@example.org", "d@example.org"},
		{"no-at-sign", "no-at-sign"},
		{"plain@example.org", "plain@example.org"},
	}
	for _, tc := range cases {
		if got := NormalizeEmail(tc.in); got != tc.want {
			t.Errorf("NormalizeEmail(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestHashIP(t *testing.T) {
	if HashIP("") != "" {
		t.Error("HashIP(\"\") must stay empty")
	}
	h := HashIP("203.0.113.9")
	if len(h) != 64 {
		t.Errorf("HashIP() length = %d, want 64 hex chars", len(h))
	}
	if h == "203.0.113.9" {
		t.Error("raw address leaked through")
	}
	if HashIP("203.0.113.9") != h {
		t.Error("HashIP() not deterministic")
	}
}
