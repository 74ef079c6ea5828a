package election

import (
	"testing"
	"time"

	"github.com/someoneelse131/purfacted-sub002/internal/domain"
	"github.com/someoneelse131/purfacted-sub002/internal/infra/sqlite"
)

func seedModerator(t *testing.T, db *sqlite.DB, id string, trust int64, lastLogin time.Time) {
	t.Helper()
	err := db.UpsertActor(domain.Actor{
		ID:         id,
		Email:      id + "@example.org",
		Role:       domain.RoleModerator,
		Credential: domain.RoleVerified,
		TrustScore: trust,
		Verified:   true,
		CreatedAt:  testNow.Add(-365 * 24 * time.Hour),
		LastLogin:  &lastLogin,
	})
	if err != nil {
		t.Fatalf("UpsertActor(%s) error: %v", id, err)
	}
}

func TestInactivitySweep_DemotesSilentModerators(t *testing.T) {
	db := newTestDB(t)
	c := newTestController(t, db)
	seedPopulation(t, db, 6, 60)
	seedModerator(t, db, "active-mod", 200, testNow.Add(-2*24*time.Hour))
	seedModerator(t, db, "silent-mod", 300, testNow.Add(-31*24*time.Hour))

	res, err := c.InactivitySweep()
	if err != nil {
		t.Fatalf("InactivitySweep() error: %v", err)
	}
	if len(res.Demoted) != 1 || res.Demoted[0] != "silent-mod" {
		t.Fatalf("demoted = %v, want [silent-mod]", res.Demoted)
	}

	silent, _ := db.GetActor("silent-mod")
	if silent.Role != domain.RoleVerified {
		t.Errorf("silent-mod role = %q, want verified", silent.Role)
	}
	active, _ := db.GetActor("active-mod")
	if active.Role != domain.RoleModerator {
		t.Errorf("active-mod role = %q, want moderator", active.Role)
	}
}

func TestInactivitySweep_LoginClearsInactivity(t *testing.T) {
	db := newTestDB(t)
	c := newTestController(t, db)
	seedPopulation(t, db, 6, 60)
	seedModerator(t, db, "returning-mod", 200, testNow.Add(-45*24*time.Hour))

	// A fresh login resets the clock before the sweep runs.
	if err := db.TouchLogin("returning-mod", testNow.Add(-time.Hour)); err != nil {
		t.Fatalf("TouchLogin() error: %v", err)
	}

	res, err := c.InactivitySweep()
	if err != nil {
		t.Fatalf("InactivitySweep() error: %v", err)
	}
	if len(res.Demoted) != 0 {
		t.Errorf("demoted = %v, want none after a recent login", res.Demoted)
	}
	mod, _ := db.GetActor("returning-mod")
	if mod.Role != domain.RoleModerator {
		t.Errorf("returning-mod role = %q, want moderator", mod.Role)
	}
}

func TestInactivitySweep_ExactWindowIsStillActive(t *testing.T) {
	db := newTestDB(t)
	c := newTestController(t, db)
	seedPopulation(t, db, 6, 60)
	// Inactivity requires strictly more than the window.
	seedModerator(t, db, "edge-mod", 200, testNow.Add(-30*24*time.Hour))

	res, err := c.InactivitySweep()
	if err != nil {
		t.Fatalf("InactivitySweep() error: %v", err)
	}
	if len(res.Demoted) != 0 {
		t.Errorf("demoted = %v, want none at exactly the window", res.Demoted)
	}
}

func TestInactivitySweep_NeverLoggedInUsesCreation(t *testing.T) {
	db := newTestDB(t)
	c := newTestController(t, db)
	seedPopulation(t, db, 6, 60)
	err := db.UpsertActor(domain.Actor{
		ID:         "ghost-mod",
		Email:      "ghost-mod@example.org",
		Role:       domain.RoleModerator,
		TrustScore: 200,
		Verified:   true,
		CreatedAt:  testNow.Add(-60 * 24 * time.Hour),
	})
	if err != nil {
		t.Fatalf("UpsertActor() error: %v", err)
	}

	res, err := c.InactivitySweep()
	if err != nil {
		t.Fatalf("InactivitySweep() error: %v", err)
	}
	if len(res.Demoted) != 1 || res.Demoted[0] != "ghost-mod" {
		t.Errorf("demoted = %v, want [ghost-mod]", res.Demoted)
	}
}

func TestInactivitySweep_RefillsVacatedSlots(t *testing.T) {
	db := newTestDB(t)
	c := newTestController(t, db)
	ids := seedPopulation(t, db, 8, 80)
	seedModerator(t, db, "silent-mod", 300, testNow.Add(-40*24*time.Hour))

	res, err := c.InactivitySweep()
	if err != nil {
		t.Fatalf("InactivitySweep() error: %v", err)
	}
	if len(res.Demoted) != 1 {
		t.Fatalf("demoted = %v, want [silent-mod]", res.Demoted)
	}
	// The freed slots go to the top candidates at or above the cutoff.
	if len(res.Promoted) == 0 || res.Promoted[0] != ids[0] {
		t.Errorf("promoted = %v, want %s first", res.Promoted, ids[0])
	}
}

func TestInactivitySweep_BootstrapDemotesWithoutRefill(t *testing.T) {
	db := newTestDB(t)
	c := newTestController(t, db)
	seedPopulation(t, db, 3, 30) // below EarlyThreshold
	seedModerator(t, db, "silent-mod", 300, testNow.Add(-40*24*time.Hour))

	res, err := c.InactivitySweep()
	if err != nil {
		t.Fatalf("InactivitySweep() error: %v", err)
	}
	if len(res.Demoted) != 1 {
		t.Errorf("demoted = %v, want [silent-mod] (sweep runs in every phase)", res.Demoted)
	}
	if len(res.Promoted) != 0 {
		t.Errorf("promoted = %v, want none during bootstrap", res.Promoted)
	}
}

// ─── Reinstatement Tests ────────────────────────────────────────────────────

func TestReinstate_OpenSlot(t *testing.T) {
	db := newTestDB(t)
	c := newTestController(t, db)
	seedPopulation(t, db, 6, 60)
	seedActor(t, db, "returner", domain.RoleVerified, 500)

	ok, err := c.Reinstate("returner")
	if err != nil {
		t.Fatalf("Reinstate() error: %v", err)
	}
	if !ok {
		t.Fatal("Reinstate() = false, want true with open slots")
	}
	r, _ := db.GetActor("returner")
	if r.Role != domain.RoleModerator {
		t.Errorf("returner role = %q, want moderator", r.Role)
	}
}

func TestReinstate_FullRosterDisplacesStrictlyLower(t *testing.T) {
	db := newTestDB(t)
	c := newTestController(t, db)
	seedPopulation(t, db, 6, 60)
	seedModerator(t, db, "mod-a", 400, testNow.Add(-time.Hour))
	seedModerator(t, db, "mod-b", 300, testNow.Add(-time.Hour))
	seedModerator(t, db, "mod-c", 200, testNow.Add(-time.Hour))
	seedActor(t, db, "returner", domain.RoleVerified, 250)

	ok, err := c.Reinstate("returner")
	if err != nil {
		t.Fatalf("Reinstate() error: %v", err)
	}
	if !ok {
		t.Fatal("Reinstate() = false, want true (200 < 250)")
	}

	displaced, _ := db.GetActor("mod-c")
	if displaced.Role == domain.RoleModerator {
		t.Error("lowest-trust moderator not displaced")
	}
	kept, _ := db.GetActor("mod-b")
	if kept.Role != domain.RoleModerator {
		t.Error("only the single lowest moderator may be displaced")
	}
}

func TestReinstate_EqualTrustDoesNotDisplace(t *testing.T) {
	db := newTestDB(t)
	c := newTestController(t, db)
	seedPopulation(t, db, 6, 60)
	seedModerator(t, db, "mod-a", 400, testNow.Add(-time.Hour))
	seedModerator(t, db, "mod-b", 300, testNow.Add(-time.Hour))
	seedModerator(t, db, "mod-c", 250, testNow.Add(-time.Hour))
	seedActor(t, db, "returner", domain.RoleVerified, 250)

	ok, err := c.Reinstate("returner")
	if err != nil {
		t.Fatalf("Reinstate() error: %v", err)
	}
	if ok {
		t.Error("Reinstate() = true, want false (displacement requires strictly lower trust)")
	}
	modC, _ := db.GetActor("mod-c")
	if modC.Role != domain.RoleModerator {
		t.Error("sitting moderator displaced on equal trust")
	}
}

func TestReinstate_Ineligible(t *testing.T) {
	db := newTestDB(t)
	c := newTestController(t, db)
	seedPopulation(t, db, 6, 60)

	// Below the cutoff: the six scores are 60..10, rank 2 cutoff 50.
	seedActor(t, db, "lowly", domain.RoleVerified, 5)
	if ok, err := c.Reinstate("lowly"); err != nil || ok {
		t.Errorf("Reinstate(lowly) = (%v, %v), want (false, nil)", ok, err)
	}

	seedActor(t, db, "banned", domain.RoleVerified, 500)
	if err := db.SetBan("banned", 3, nil); err != nil {
		t.Fatalf("SetBan() error: %v", err)
	}
	if ok, err := c.Reinstate("banned"); err != nil || ok {
		t.Errorf("Reinstate(banned) = (%v, %v), want (false, nil)", ok, err)
	}

	seedActor(t, db, "megacorp", domain.RoleOrganization, 500)
	if ok, err := c.Reinstate("megacorp"); err != nil || ok {
		t.Errorf("Reinstate(megacorp) = (%v, %v), want (false, nil)", ok, err)
	}

	if _, err := c.Reinstate("nobody"); err != domain.ErrActorNotFound {
		t.Errorf("Reinstate(nobody) error = %v, want ErrActorNotFound", err)
	}
}

func TestReinstate_AlreadySeated(t *testing.T) {
	db := newTestDB(t)
	c := newTestController(t, db)
	seedPopulation(t, db, 6, 60)
	seedModerator(t, db, "mod-a", 400, testNow.Add(-time.Hour))

	ok, err := c.Reinstate("mod-a")
	if err != nil {
		t.Fatalf("Reinstate() error: %v", err)
	}
	if ok {
		t.Error("Reinstate() = true for a sitting moderator, want false")
	}
}
