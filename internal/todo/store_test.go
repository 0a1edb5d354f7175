package todo

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/daily-todo/internal/store"
	"github.com/nhle/daily-todo/tests/testutil"
)

// testClock is a controllable clock for driving the evaluators.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func (c *testClock) SetTo(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func newTestStore(t *testing.T) (*Store, *testutil.RecordingNotifier, *testClock) {
	t.Helper()

	kv := store.NewMemKV()
	rec := &testutil.RecordingNotifier{}
	logger := log.New(io.Discard)

	s, err := New(context.Background(), kv, rec, logger)
	require.NoError(t, err)

	clk := &testClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.Local)}
	s.now = clk.Now
	return s, rec, clk
}

// enableNotifications flips the store into a notifying configuration
// without going through the settings endpoint.
func enableNotifications(s *Store, recipient string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings.NotificationsEnabled = true
	s.settings.RecipientID = recipient
}

func TestAddTask_EmptyTextIsNoOp(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	task, err := s.AddTask(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, task)

	task, err = s.AddTask(ctx, "   ")
	require.NoError(t, err)
	assert.Nil(t, task)

	assert.Empty(t, s.Tasks())
}

func TestAddTask_TrimsAndDefaults(t *testing.T) {
	s, _, _ := newTestStore(t)

	task, err := s.AddTask(context.Background(), "  water the plants  ")
	require.NoError(t, err)
	require.NotNil(t, task)

	assert.Equal(t, "water the plants", task.Text)
	assert.False(t, task.Completed)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, task.CreatedAt, task.UpdatedAt)
}

func TestMutationInvariants(t *testing.T) {
	s, _, clk := newTestStore(t)
	ctx := context.Background()

	a, err := s.AddTask(ctx, "one")
	require.NoError(t, err)
	clk.Advance(time.Minute)
	b, err := s.AddTask(ctx, "two")
	require.NoError(t, err)
	clk.Advance(time.Minute)
	_, err = s.AddTask(ctx, "three")
	require.NoError(t, err)

	clk.Advance(time.Minute)
	_, err = s.ToggleTask(ctx, a.ID)
	require.NoError(t, err)
	clk.Advance(time.Minute)
	_, err = s.UpdateTask(ctx, b.ID, "two, revised")
	require.NoError(t, err)
	_, err = s.DeleteTask(ctx, a.ID)
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, task := range s.Tasks() {
		assert.False(t, seen[task.ID], "duplicate id %s", task.ID)
		seen[task.ID] = true
		assert.False(t, task.UpdatedAt.Before(task.CreatedAt),
			"updatedAt %v before createdAt %v", task.UpdatedAt, task.CreatedAt)
	}
	assert.Len(t, seen, 2)
}

func TestToggleTask_TwiceRestoresState(t *testing.T) {
	s, _, clk := newTestStore(t)
	ctx := context.Background()

	task, err := s.AddTask(ctx, "laundry")
	require.NoError(t, err)

	clk.Advance(time.Minute)
	toggled, err := s.ToggleTask(ctx, task.ID)
	require.NoError(t, err)
	require.NotNil(t, toggled)
	assert.True(t, toggled.Completed)
	assert.True(t, toggled.UpdatedAt.After(task.UpdatedAt))

	clk.Advance(time.Minute)
	again, err := s.ToggleTask(ctx, task.ID)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.False(t, again.Completed)
	assert.True(t, again.UpdatedAt.After(toggled.UpdatedAt))
}

func TestUnknownIDsAreNoOps(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.AddTask(ctx, "keep me")
	require.NoError(t, err)

	task, err := s.ToggleTask(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, task)

	task, err = s.UpdateTask(ctx, "nope", "new text")
	require.NoError(t, err)
	assert.Nil(t, task)

	removed, err := s.DeleteTask(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, removed)

	assert.Len(t, s.Tasks(), 1)
}

func TestUpdateTask_EmptyTextIsNoOp(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	task, err := s.AddTask(ctx, "original")
	require.NoError(t, err)

	updated, err := s.UpdateTask(ctx, task.ID, "   ")
	require.NoError(t, err)
	assert.Nil(t, updated)

	assert.Equal(t, "original", s.Tasks()[0].Text)
}

func TestPersistenceRoundTrip(t *testing.T) {
	kv := store.NewMemKV()
	logger := log.New(io.Discard)
	ctx := context.Background()

	s, err := New(ctx, kv, &testutil.RecordingNotifier{}, logger)
	require.NoError(t, err)

	_, err = s.AddTask(ctx, "alpha")
	require.NoError(t, err)
	task, err := s.AddTask(ctx, "beta")
	require.NoError(t, err)
	_, err = s.ToggleTask(ctx, task.ID)
	require.NoError(t, err)

	rt := "07:30"
	_, err = s.UpdateSettings(ctx, SettingsPatch{ResetTime: &rt})
	require.NoError(t, err)

	reloaded, err := New(ctx, kv, &testutil.RecordingNotifier{}, logger)
	require.NoError(t, err)

	orig := s.Tasks()
	got := reloaded.Tasks()
	require.Len(t, got, 2)
	for i := range orig {
		assert.Equal(t, orig[i].ID, got[i].ID)
		assert.Equal(t, orig[i].Text, got[i].Text)
		assert.Equal(t, orig[i].Completed, got[i].Completed)
		assert.True(t, got[i].CreatedAt.Equal(orig[i].CreatedAt))
		assert.True(t, got[i].UpdatedAt.Equal(orig[i].UpdatedAt))
	}
	assert.Equal(t, "07:30", reloaded.Settings().ResetTime)
}

func TestCorruptDataFallsBackToDefaults(t *testing.T) {
	kv := store.NewMemKV()
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, store.TasksKey, []byte("{not json")))
	require.NoError(t, kv.Set(ctx, store.SettingsKey, []byte("[42]")))

	s, err := New(ctx, kv, &testutil.RecordingNotifier{}, log.New(io.Discard))
	require.NoError(t, err)

	assert.Empty(t, s.Tasks())
	assert.Equal(t, "06:00", s.Settings().ResetTime)
	assert.False(t, s.Settings().NotificationsEnabled)
}

func TestUpdateSettings_RejectsBadResetTime(t *testing.T) {
	s, _, _ := newTestStore(t)

	bad := "25:99"
	_, err := s.UpdateSettings(context.Background(), SettingsPatch{ResetTime: &bad})
	assert.Error(t, err)
	assert.Equal(t, "06:00", s.Settings().ResetTime)
}

func TestTickReset_FiresAfterThreshold(t *testing.T) {
	s, rec, clk := newTestStore(t)
	ctx := context.Background()

	clk.SetTo(time.Date(2024, 1, 1, 12, 0, 0, 0, time.Local))
	a, err := s.AddTask(ctx, "one")
	require.NoError(t, err)
	_, err = s.AddTask(ctx, "two")
	require.NoError(t, err)
	_, err = s.ToggleTask(ctx, a.ID)
	require.NoError(t, err)

	enableNotifications(s, "user-1")
	s.mu.Lock()
	s.settings.LastResetDate = "2024-01-01"
	s.mu.Unlock()
	rec.Reset()

	now := time.Date(2024, 1, 2, 7, 0, 0, 0, time.Local)
	clk.SetTo(now)
	require.NoError(t, s.TickReset(ctx, now))
	s.Flush()

	for _, task := range s.Tasks() {
		assert.False(t, task.Completed)
		assert.Equal(t, now, task.UpdatedAt)
	}
	assert.Equal(t, "2024-01-02", s.Settings().LastResetDate)
	assert.False(t, s.celebrated)

	sends := rec.Sends()
	require.Len(t, sends, 1)
	assert.Equal(t, "user-1", sends[0].RecipientID)
	assert.Equal(t, msgReset, sends[0].Message)
}

func TestTickReset_NotBeforeResetTime(t *testing.T) {
	s, rec, clk := newTestStore(t)
	ctx := context.Background()

	a, err := s.AddTask(ctx, "one")
	require.NoError(t, err)
	_, err = s.ToggleTask(ctx, a.ID)
	require.NoError(t, err)

	enableNotifications(s, "user-1")
	s.mu.Lock()
	s.settings.LastResetDate = "2024-01-01"
	s.mu.Unlock()
	rec.Reset()

	now := time.Date(2024, 1, 2, 5, 0, 0, 0, time.Local)
	clk.SetTo(now)
	require.NoError(t, s.TickReset(ctx, now))
	s.Flush()

	assert.True(t, s.Tasks()[0].Completed)
	assert.Equal(t, "2024-01-01", s.Settings().LastResetDate)
	assert.Empty(t, rec.Sends())
}

func TestTickReset_AtMostOncePerDay(t *testing.T) {
	s, rec, clk := newTestStore(t)
	ctx := context.Background()

	enableNotifications(s, "user-1")
	s.mu.Lock()
	s.settings.LastResetDate = "2024-01-01"
	s.mu.Unlock()

	now := time.Date(2024, 1, 2, 7, 0, 0, 0, time.Local)
	clk.SetTo(now)
	require.NoError(t, s.TickReset(ctx, now))
	require.NoError(t, s.TickReset(ctx, now.Add(time.Minute)))
	s.Flush()

	assert.Len(t, rec.Sends(), 1)
}

func TestTickReminder(t *testing.T) {
	s, rec, clk := newTestStore(t)
	ctx := context.Background()

	// Five tasks, two incomplete.
	var ids []string
	for _, text := range []string{"a", "b", "c", "d", "e"} {
		task, err := s.AddTask(ctx, text)
		require.NoError(t, err)
		ids = append(ids, task.ID)
	}
	for _, id := range ids[:3] {
		_, err := s.ToggleTask(ctx, id)
		require.NoError(t, err)
	}

	enableNotifications(s, "user-1")
	rec.Reset()

	// Exactly four hours before the 06:00 reset.
	now := time.Date(2024, 1, 1, 2, 0, 0, 0, time.Local)
	clk.SetTo(now)
	s.TickReminder(now)
	s.Flush()

	sends := rec.Sends()
	require.Len(t, sends, 1)
	assert.Contains(t, sends[0].Message, "2 task(s)")
	assert.Contains(t, sends[0].Message, "4 hour(s)")

	// Five hours out: no reminder.
	rec.Reset()
	s.TickReminder(time.Date(2024, 1, 1, 1, 0, 0, 0, time.Local))
	s.Flush()
	assert.Empty(t, rec.Sends())

	// Same offset with nothing incomplete: no reminder.
	for _, id := range ids[3:] {
		_, err := s.ToggleTask(ctx, id)
		require.NoError(t, err)
	}
	s.Flush()
	rec.Reset()
	s.TickReminder(now)
	s.Flush()
	assert.Empty(t, rec.Sends())
}

func countAllDone(sends []testutil.Send) int {
	n := 0
	for _, send := range sends {
		if strings.Contains(send.Message, msgAllDone) {
			n++
		}
	}
	return n
}

func TestCelebration_FiresOncePerCycle(t *testing.T) {
	s, rec, _ := newTestStore(t)
	ctx := context.Background()

	a, err := s.AddTask(ctx, "one")
	require.NoError(t, err)
	b, err := s.AddTask(ctx, "two")
	require.NoError(t, err)

	enableNotifications(s, "user-1")

	_, err = s.ToggleTask(ctx, a.ID)
	require.NoError(t, err)
	_, err = s.ToggleTask(ctx, b.ID)
	require.NoError(t, err)
	s.Flush()

	assert.True(t, s.Celebrating())
	assert.Equal(t, 1, countAllDone(rec.Sends()))

	// Re-evaluating while everything stays complete does not re-fire.
	s.TickCelebration()
	s.TickCelebration()
	s.Flush()
	assert.Equal(t, 1, countAllDone(rec.Sends()))

	// Dropping below full completion re-arms the cycle.
	_, err = s.ToggleTask(ctx, a.ID)
	require.NoError(t, err)
	_, err = s.ToggleTask(ctx, a.ID)
	require.NoError(t, err)
	s.Flush()

	assert.Equal(t, 2, countAllDone(rec.Sends()))
}

func TestCelebration_DismissDoesNotRearm(t *testing.T) {
	s, rec, _ := newTestStore(t)
	ctx := context.Background()

	task, err := s.AddTask(ctx, "only")
	require.NoError(t, err)

	enableNotifications(s, "user-1")
	_, err = s.ToggleTask(ctx, task.ID)
	require.NoError(t, err)
	s.Flush()

	require.True(t, s.Celebrating())
	s.DismissCelebration()
	assert.False(t, s.Celebrating())

	s.TickCelebration()
	s.Flush()
	assert.False(t, s.Celebrating())
	assert.Equal(t, 1, countAllDone(rec.Sends()))
}

func TestCelebration_EmptyListNeverFires(t *testing.T) {
	s, rec, _ := newTestStore(t)

	enableNotifications(s, "user-1")
	s.TickCelebration()
	s.Flush()

	assert.False(t, s.Celebrating())
	assert.Empty(t, rec.Sends())
}

func TestNotificationsDisabledByDefault(t *testing.T) {
	s, rec, _ := newTestStore(t)
	ctx := context.Background()

	task, err := s.AddTask(ctx, "quiet")
	require.NoError(t, err)
	_, err = s.ToggleTask(ctx, task.ID)
	require.NoError(t, err)
	s.Flush()

	assert.Empty(t, rec.Sends())
}

func TestNotificationFailureDoesNotFailMutation(t *testing.T) {
	s, rec, _ := newTestStore(t)
	rec.Err = errors.New("relay unreachable")

	enableNotifications(s, "user-1")

	task, err := s.AddTask(context.Background(), "still works")
	require.NoError(t, err)
	require.NotNil(t, task)
	s.Flush()

	assert.Len(t, s.Tasks(), 1)
	assert.Len(t, rec.Sends(), 1)
}
