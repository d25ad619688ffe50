package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/tablebook/database"
	"github.com/yeremiapane/tablebook/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	PasswordCost = bcrypt.MinCost
}

// baseNow is a Sunday noon; "tomorrow" in these tests is 2026-10-19.
var baseNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

type recordedEvent struct {
	Event string
	Data  interface{}
}

type recorder struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recorder) Publish(event string, data interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{event, data})
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Event)
	}
	return out
}

type testEnv struct {
	t      *testing.T
	ctx    context.Context
	db     *gorm.DB
	svc    *Services
	events *recorder

	mu  sync.Mutex
	now time.Time
}

// setupTestDB opens a private in-memory sqlite database. One connection keeps
// it alive and serializes writers like a single sqlite file would.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	e := &testEnv{t: t, ctx: context.Background(), db: setupTestDB(t), events: &recorder{}, now: baseNow}
	e.svc = New(e.db, Options{
		Clock:  FixedClock(time.UTC, e.clockNow),
		Events: e.events,
	})
	return e
}

func (e *testEnv) clockNow() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now
}

func (e *testEnv) setNow(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
}

func (e *testEnv) table(capacity int) *models.Table {
	e.t.Helper()
	table := &models.Table{Quantity: 1, Capacity: capacity}
	require.NoError(e.t, e.svc.Tables.Create(e.ctx, table))
	return table
}

// slot inserts a timeslot directly, skipping catalog validation so tests can
// place slots in the past.
func (e *testEnv) slot(table *models.Table, date models.Date, start, end string) *models.Timeslot {
	e.t.Helper()
	ts := &models.Timeslot{Date: date, StartTime: mustClock(e.t, start)}
	if end != "" {
		c := mustClock(e.t, end)
		ts.EndTime = &c
	}
	if table != nil {
		id := table.ID
		ts.TableID = &id
	}
	require.NoError(e.t, e.db.Create(ts).Error)
	return ts
}

func (e *testEnv) user(role models.Role) *models.User {
	e.t.Helper()
	var n int64
	e.db.Model(&models.User{}).Count(&n)
	u := &models.User{
		Name:           fmt.Sprintf("User %d", n+1),
		Email:          fmt.Sprintf("user%d@example.com", n+1),
		PasswordDigest: "x",
		Role:           role,
	}
	require.NoError(e.t, e.db.Create(u).Error)
	return u
}

func (e *testEnv) reload(r *models.Reservation) *models.Reservation {
	e.t.Helper()
	var fresh models.Reservation
	require.NoError(e.t, e.db.First(&fresh, r.ID).Error)
	return &fresh
}

// insertReservation bypasses admission to set up a given status.
func (e *testEnv) insertReservation(u *models.User, table *models.Table, ts *models.Timeslot, status models.ReservationStatus) *models.Reservation {
	e.t.Helper()
	r := &models.Reservation{UserID: u.ID, TableID: table.ID, TimeslotID: ts.ID, NumPeople: 2, Status: status}
	r.SyncOccupancy()
	require.NoError(e.t, e.db.Create(r).Error)
	return r
}

func actorOf(u *models.User) Actor {
	return Actor{UserID: u.ID, Role: u.Role}
}

func mustClock(t *testing.T, s string) models.ClockTime {
	t.Helper()
	c, err := models.ParseClockTime(s)
	require.NoError(t, err)
	return c
}

var (
	today    = models.DateOf(baseNow)
	tomorrow = today.AddDays(1)
)

func requireValidation(t *testing.T, err error) ValidationErrors {
	t.Helper()
	require.Error(t, err)
	verrs, ok := err.(ValidationErrors)
	require.True(t, ok, "expected ValidationErrors, got %T: %v", err, err)
	return verrs
}

func requireDenied(t *testing.T, err error) *DeniedError {
	t.Helper()
	require.Error(t, err)
	denial, ok := err.(*DeniedError)
	require.True(t, ok, "expected *DeniedError, got %T: %v", err, err)
	return denial
}
