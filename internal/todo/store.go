// Package todo owns the task list and user settings: mutation
// operations, write-through persistence, and the three time-driven
// evaluators (daily reset, reminder, celebration).
package todo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/nhle/daily-todo/internal/model"
	"github.com/nhle/daily-todo/internal/notify"
	"github.com/nhle/daily-todo/internal/store"
)

// notifyTimeout bounds a single fire-and-forget notification attempt.
const notifyTimeout = 30 * time.Second

// Outbound notification texts.
const (
	msgReset   = "Good morning! All tasks were reset for a new day."
	msgAllDone = "Congratulations! You completed every task today."
)

// Store holds the task list and settings in memory, persists them
// through a KV store after every mutation, and evaluates the daily
// reset, reminder, and celebration rules against a supplied clock.
//
// All exported methods are safe for concurrent use; a single mutex
// serializes state access. Notification sends run outside the lock and
// never block or fail a mutation.
type Store struct {
	mu          sync.Mutex
	tasks       []model.Task
	settings    model.Settings
	celebrated  bool // already celebrated this completion cycle
	celebrating bool // presentation should show the celebration now

	kv       store.KV
	notifier notify.Notifier
	logger   *log.Logger
	now      func() time.Time

	notifyWG sync.WaitGroup
}

// New creates a Store backed by kv and loads any persisted state.
// Corrupt or missing persisted entries fall back to defaults; loading
// never fails on bad data, only on storage errors.
func New(ctx context.Context, kv store.KV, notifier notify.Notifier, logger *log.Logger) (*Store, error) {
	s := &Store{
		kv:       kv,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}

	if err := s.load(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

// load reads tasks and settings from the KV store. Parse failures are
// logged and treated as absent data.
func (s *Store) load(ctx context.Context) error {
	s.settings = model.DefaultSettings(s.now())

	data, ok, err := s.kv.Get(ctx, store.TasksKey)
	if err != nil {
		return fmt.Errorf("loading tasks: %w", err)
	}
	if ok {
		var tasks []model.Task
		if err := json.Unmarshal(data, &tasks); err != nil {
			s.logger.Warn("discarding corrupt task data", "err", err)
		} else {
			s.tasks = tasks
		}
	}

	data, ok, err = s.kv.Get(ctx, store.SettingsKey)
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}
	if ok {
		var settings model.Settings
		if err := json.Unmarshal(data, &settings); err != nil {
			s.logger.Warn("discarding corrupt settings data", "err", err)
		} else {
			s.settings = settings
		}
	}

	return nil
}

// AddTask creates a new task from text. Text that is empty after
// trimming is a no-op and returns a nil task.
func (s *Store) AddTask(ctx context.Context, text string) (*model.Task, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	task := model.Task{
		ID:        uuid.New().String(),
		Text:      trimmed,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.tasks = append(s.tasks, task)

	if err := s.persistTasks(ctx); err != nil {
		return nil, err
	}

	s.notifyLocked("New task: " + trimmed)
	s.checkCelebrationLocked()

	return &task, nil
}

// ToggleTask flips a task's completed flag. Unknown ids are a no-op and
// return a nil task. Completing a task fires a best-effort notification.
func (s *Store) ToggleTask(ctx context.Context, id string) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return nil, nil
	}

	s.tasks[i].Completed = !s.tasks[i].Completed
	s.tasks[i].UpdatedAt = s.now()

	if err := s.persistTasks(ctx); err != nil {
		return nil, err
	}

	if s.tasks[i].Completed {
		s.notifyLocked("Task completed: " + s.tasks[i].Text)
	}
	s.checkCelebrationLocked()

	task := s.tasks[i]
	return &task, nil
}

// UpdateTask replaces a task's text. Unknown ids and text that is empty
// after trimming are no-ops returning a nil task.
func (s *Store) UpdateTask(ctx context.Context, id, newText string) (*model.Task, error) {
	trimmed := strings.TrimSpace(newText)
	if trimmed == "" {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return nil, nil
	}

	s.tasks[i].Text = trimmed
	s.tasks[i].UpdatedAt = s.now()

	if err := s.persistTasks(ctx); err != nil {
		return nil, err
	}

	task := s.tasks[i]
	return &task, nil
}

// DeleteTask removes a task. Unknown ids are a no-op; the bool reports
// whether anything was removed.
func (s *Store) DeleteTask(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return false, nil
	}

	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)

	if err := s.persistTasks(ctx); err != nil {
		return false, err
	}

	s.checkCelebrationLocked()
	return true, nil
}

// SettingsPatch is a partial settings update; nil fields are left
// unchanged.
type SettingsPatch struct {
	ResetTime            *string `json:"resetTime,omitempty"`
	NotificationsEnabled *bool   `json:"notificationsEnabled,omitempty"`
	RecipientID          *string `json:"recipientId,omitempty"`
}

// UpdateSettings shallow-merges patch into the settings and persists
// them. An unparseable reset time is rejected before any change.
func (s *Store) UpdateSettings(ctx context.Context, patch SettingsPatch) (model.Settings, error) {
	if patch.ResetTime != nil {
		if _, err := model.ParseClock(*patch.ResetTime); err != nil {
			return model.Settings{}, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if patch.ResetTime != nil {
		s.settings.ResetTime = *patch.ResetTime
	}
	if patch.NotificationsEnabled != nil {
		s.settings.NotificationsEnabled = *patch.NotificationsEnabled
	}
	if patch.RecipientID != nil {
		s.settings.RecipientID = *patch.RecipientID
	}

	if err := s.persistSettings(ctx); err != nil {
		return model.Settings{}, err
	}

	return s.settings, nil
}

// TickReset runs the daily reset evaluator: once per calendar day, at or
// after the configured reset time, all tasks revert to incomplete and
// the celebration cycle re-arms.
func (s *Store) TickReset(ctx context.Context, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	resetMin, err := model.ParseClock(s.settings.ResetTime)
	if err != nil {
		s.logger.Warn("skipping reset check", "err", err)
		return nil
	}

	today := now.Format(model.DateLayout)
	if today == s.settings.LastResetDate || model.MinutesOfDay(now) < resetMin {
		return nil
	}

	for i := range s.tasks {
		s.tasks[i].Completed = false
		s.tasks[i].UpdatedAt = now
	}
	s.settings.LastResetDate = today
	s.celebrated = false
	s.celebrating = false

	if err := s.persistTasks(ctx); err != nil {
		return err
	}
	if err := s.persistSettings(ctx); err != nil {
		return err
	}

	s.logger.Info("daily reset applied", "date", today, "tasks", len(s.tasks))
	s.notifyLocked(msgReset)
	return nil
}

// TickReminder runs the reminder evaluator: when the floor of the hours
// remaining until reset is exactly 3 or 4 and incomplete tasks exist, a
// reminder with both counts goes out. The check is intentionally coarse;
// combined with an hourly cadence it can miss or double-fire around hour
// boundaries.
func (s *Store) TickReminder(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	resetMin, err := model.ParseClock(s.settings.ResetTime)
	if err != nil {
		s.logger.Warn("skipping reminder check", "err", err)
		return
	}

	minutesUntilReset := resetMin - model.MinutesOfDay(now)
	if minutesUntilReset < 0 {
		minutesUntilReset += 24 * 60
	}
	hoursUntilReset := minutesUntilReset / 60

	incomplete := 0
	for _, t := range s.tasks {
		if !t.Completed {
			incomplete++
		}
	}

	if (hoursUntilReset == 3 || hoursUntilReset == 4) && incomplete > 0 {
		s.notifyLocked(fmt.Sprintf(
			"Reminder: %d task(s) to finish, %d hour(s) until reset.",
			incomplete, hoursUntilReset,
		))
	}
}

// TickCelebration runs the celebration evaluator against current state.
func (s *Store) TickCelebration() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkCelebrationLocked()
}

// checkCelebrationLocked fires the one-time "all done" celebration when
// every task is complete, and re-arms it whenever the completed count
// drops below the total. Caller must hold mu.
func (s *Store) checkCelebrationLocked() {
	total := len(s.tasks)
	completed := 0
	for _, t := range s.tasks {
		if t.Completed {
			completed++
		}
	}

	if total > 0 && completed == total && !s.celebrated {
		s.celebrated = true
		s.celebrating = true
		s.notifyLocked(msgAllDone)
	}

	if completed < total {
		s.celebrated = false
	}
}

// Tasks returns a copy of the current task list.
func (s *Store) Tasks() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := make([]model.Task, len(s.tasks))
	copy(tasks, s.tasks)
	return tasks
}

// Settings returns the current settings.
func (s *Store) Settings() model.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Celebrating reports whether the celebration should be shown.
func (s *Store) Celebrating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.celebrating
}

// DismissCelebration hides the celebration without re-arming it.
func (s *Store) DismissCelebration() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.celebrating = false
	s.celebrated = true
}

// Flush waits for all in-flight notification sends to finish. Called on
// shutdown and by tests.
func (s *Store) Flush() {
	s.notifyWG.Wait()
}

// indexLocked returns the index of the task with the given id, or -1.
// Caller must hold mu.
func (s *Store) indexLocked(id string) int {
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// notifyLocked dispatches a fire-and-forget notification when
// notifications are enabled and a recipient is configured. Failures are
// logged, never returned. Caller must hold mu.
func (s *Store) notifyLocked(message string) {
	if !s.settings.NotificationsEnabled || s.settings.RecipientID == "" {
		return
	}

	recipient := s.settings.RecipientID
	s.notifyWG.Add(1)
	go func() {
		defer s.notifyWG.Done()

		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if err := s.notifier.Send(ctx, recipient, message); err != nil {
			s.logger.Warn("notification send failed", "err", err)
		}
	}()
}

// persistTasks writes the task list through to storage. Caller must
// hold mu.
func (s *Store) persistTasks(ctx context.Context) error {
	data, err := json.Marshal(s.tasks)
	if err != nil {
		return fmt.Errorf("marshaling tasks: %w", err)
	}
	if err := s.kv.Set(ctx, store.TasksKey, data); err != nil {
		return fmt.Errorf("persisting tasks: %w", err)
	}
	return nil
}

// persistSettings writes the settings through to storage. Caller must
// hold mu.
func (s *Store) persistSettings(ctx context.Context) error {
	data, err := json.Marshal(s.settings)
	if err != nil {
		return fmt.Errorf("marshaling settings: %w", err)
	}
	if err := s.kv.Set(ctx, store.SettingsKey, data); err != nil {
		return fmt.Errorf("persisting settings: %w", err)
	}
	return nil
}
