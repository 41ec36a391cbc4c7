package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/IvanSitnikov1/tracker-bot/internal/domain"
	"github.com/IvanSitnikov1/tracker-bot/internal/export"
	"github.com/IvanSitnikov1/tracker-bot/internal/persistence/memory"
	"github.com/IvanSitnikov1/tracker-bot/internal/session"
	"github.com/IvanSitnikov1/tracker-bot/internal/tracking"
	"github.com/IvanSitnikov1/tracker-bot/internal/wizard"
)

const (
	testOwner   int64 = 100
	testChat    int64 = 200
	testSession       = "200:100"
)

type edit struct {
	messageID int64
	reply     Reply
}

type answer struct {
	text  string
	alert bool
}

type recordingTransport struct {
	mu      sync.Mutex
	nextID  int64
	sent    []Reply
	edits   []edit
	deleted []int64
	docs    []Document
	answers []answer
}

func (r *recordingTransport) SendMessage(ctx context.Context, chatID int64, reply Reply) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.sent = append(r.sent, reply)
	return 1000 + r.nextID, nil
}

func (r *recordingTransport) EditMessage(ctx context.Context, chatID, messageID int64, reply Reply) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edits = append(r.edits, edit{messageID: messageID, reply: reply})
	return nil
}

func (r *recordingTransport) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, messageID)
	return nil
}

func (r *recordingTransport) SendDocument(ctx context.Context, chatID int64, doc Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = append(r.docs, doc)
	return nil
}

func (r *recordingTransport) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answers = append(r.answers, answer{text: text, alert: alert})
	return nil
}

func (r *recordingTransport) lastSent() Reply {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sent[len(r.sent)-1]
}

func (r *recordingTransport) lastEdit() edit {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.edits[len(r.edits)-1]
}

func (r *recordingTransport) lastAnswer() answer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.answers[len(r.answers)-1]
}

type harness struct {
	router    *Router
	service   *domain.Service
	sessions  *session.MemoryStore
	transport *recordingTransport
	now       time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		service:   domain.NewService(memory.NewRepository()),
		sessions:  session.NewMemoryStore(),
		transport: &recordingTransport{},
		now:       time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC),
	}
	engine := tracking.NewEngine(h.service, tracking.WithClock(func() time.Time { return h.now }))
	h.router = NewRouter(h.service, engine, export.New(h.service), h.sessions, h.transport)
	return h
}

func (h *harness) text(t *testing.T, text string) {
	t.Helper()
	require.NoError(t, h.router.Handle(context.Background(), Event{
		SessionID: testSession, OwnerID: testOwner, ChatID: testChat, MessageID: 55,
		Kind: KindText, Text: text,
	}))
}

func (h *harness) press(t *testing.T, data string) {
	t.Helper()
	require.NoError(t, h.router.Handle(context.Background(), Event{
		SessionID: testSession, OwnerID: testOwner, ChatID: testChat, MessageID: 77,
		Kind: KindCallback, CallbackID: "cb", CallbackData: data,
	}))
}

func (h *harness) state(t *testing.T) session.State {
	t.Helper()
	state, err := h.sessions.Load(context.Background(), testSession)
	require.NoError(t, err)
	return state
}

func (h *harness) activities(t *testing.T) []domain.Activity {
	t.Helper()
	activities, err := h.service.ListActivities(context.Background(), testOwner)
	require.NoError(t, err)
	return activities
}

func TestAddActivityFlow(t *testing.T) {
	h := newHarness(t)

	h.text(t, MenuAddActivity)
	require.Equal(t, msgChooseType, h.transport.lastSent().Text)
	require.NotNil(t, h.transport.lastSent().Inline)

	h.press(t, "add_activity:time")
	require.Equal(t, msgEnterName, h.transport.lastEdit().reply.Text)
	require.True(t, h.state(t).Wizard.In(wizard.FlowAddActivity, wizard.StepAwaitingName))

	h.text(t, "Guitar")
	require.Contains(t, h.transport.lastSent().Text, "Guitar")
	require.False(t, h.state(t).Wizard.Active())

	activities := h.activities(t)
	require.Len(t, activities, 1)
	require.Equal(t, domain.ActivityTypeTime, activities[0].Type)
}

func TestAddActivityDuplicateNameKeepsPrompt(t *testing.T) {
	h := newHarness(t)
	_, err := h.service.CreateActivity(context.Background(), testOwner, "Run", domain.ActivityTypeCheckbox)
	require.NoError(t, err)

	h.text(t, MenuAddActivity)
	h.press(t, "add_activity:checkbox")
	h.text(t, "Run")

	require.Equal(t, msgNameTaken, h.transport.lastSent().Text)
	require.True(t, h.state(t).Wizard.In(wizard.FlowAddActivity, wizard.StepAwaitingName))
	require.Len(t, h.activities(t), 1)

	h.text(t, "Run twice")
	require.Len(t, h.activities(t), 2)
}

func TestAbandonedWizardWritesNothing(t *testing.T) {
	h := newHarness(t)

	h.text(t, MenuAddActivity)
	h.press(t, "add_activity:time")
	h.text(t, MenuStatistics)

	require.False(t, h.state(t).Wizard.Active())
	require.Empty(t, h.activities(t))
	require.Equal(t, msgChoosePeriod, h.transport.lastSent().Text)
}

func TestTrackTimerThroughRouter(t *testing.T) {
	h := newHarness(t)
	guitar, err := h.service.CreateActivity(context.Background(), testOwner, "Guitar", domain.ActivityTypeTime)
	require.NoError(t, err)

	h.text(t, MenuActivities)
	require.Equal(t, msgPickActivity, h.transport.lastSent().Text)
	require.Equal(t, "▶️ Guitar (0 min.)", h.transport.lastSent().Inline.Rows[0][0].Text)

	h.press(t, fmt.Sprintf("activity:track:%d", guitar.ID))
	require.True(t, h.state(t).Timers.Running(guitar.ID))
	require.Equal(t, int64(77), h.transport.lastEdit().messageID)
	require.Equal(t, "⏹️ Guitar (0 min.)", h.transport.lastEdit().reply.Inline.Rows[0][0].Text)

	h.now = h.now.Add(30 * time.Minute)
	h.press(t, fmt.Sprintf("activity:track:%d", guitar.ID))
	require.False(t, h.state(t).Timers.Running(guitar.ID))
	require.Equal(t, "▶️ Guitar (30 min.)", h.transport.lastEdit().reply.Inline.Rows[0][0].Text)
	require.Equal(t, "+30 min.", h.transport.lastAnswer().text)
}

func TestTrackUnknownActivityAlerts(t *testing.T) {
	h := newHarness(t)
	h.press(t, "activity:track:999")
	require.Equal(t, answer{text: msgNotFound, alert: true}, h.transport.lastAnswer())
	require.Empty(t, h.transport.edits)
}

func TestManualTimeFlow(t *testing.T) {
	h := newHarness(t)
	guitar, err := h.service.CreateActivity(context.Background(), testOwner, "Guitar", domain.ActivityTypeTime)
	require.NoError(t, err)

	h.press(t, fmt.Sprintf("activity:manual_time:%d", guitar.ID))
	require.Equal(t, msgEnterMinutes, h.transport.lastSent().Text)
	state := h.state(t)
	require.True(t, state.Wizard.In(wizard.FlowManualTime, wizard.StepAwaitingMinutes))
	promptID := state.Wizard.PromptMessageID

	h.text(t, "fifteen")
	require.Equal(t, msgWholeNumber, h.transport.lastSent().Text)
	require.True(t, h.state(t).Wizard.Active())

	h.text(t, "15")
	require.Equal(t, "✅ Added 15 min.", h.transport.lastSent().Text)
	require.ElementsMatch(t, []int64{55, promptID}, h.transport.deleted)
	require.Equal(t, int64(77), h.transport.lastEdit().messageID)
	require.Equal(t, "▶️ Guitar (15 min.)", h.transport.lastEdit().reply.Inline.Rows[0][0].Text)
	require.False(t, h.state(t).Wizard.Active())
}

func TestManualTimeRejectsOversizedTotal(t *testing.T) {
	h := newHarness(t)
	guitar, err := h.service.CreateActivity(context.Background(), testOwner, "Guitar", domain.ActivityTypeTime)
	require.NoError(t, err)

	h.press(t, fmt.Sprintf("activity:manual_time:%d", guitar.ID))
	h.text(t, "30")
	h.press(t, fmt.Sprintf("activity:manual_time:%d", guitar.ID))

	h.text(t, "2147483647")
	require.Equal(t, msgTooManyMinutes, h.transport.lastSent().Text)
	require.True(t, h.state(t).Wizard.In(wizard.FlowManualTime, wizard.StepAwaitingMinutes))

	h.text(t, "99999999999999999999")
	require.Equal(t, msgTooManyMinutes, h.transport.lastSent().Text)
	require.True(t, h.state(t).Wizard.Active())

	h.text(t, "5")
	require.Equal(t, "✅ Added 5 min.", h.transport.lastSent().Text)
	logs, err := h.service.LogsForDay(context.Background(), testOwner, h.now)
	require.NoError(t, err)
	require.Equal(t, 35, logs[guitar.ID].Minutes())
}

func TestManualTimeOnCheckboxActivity(t *testing.T) {
	h := newHarness(t)
	run, err := h.service.CreateActivity(context.Background(), testOwner, "Run", domain.ActivityTypeCheckbox)
	require.NoError(t, err)

	h.press(t, fmt.Sprintf("activity:manual_time:%d", run.ID))
	h.text(t, "10")
	require.Equal(t, msgNotTimeActivity, h.transport.lastSent().Text)
	require.False(t, h.state(t).Wizard.Active())
}

func TestExportRangeFlow(t *testing.T) {
	h := newHarness(t)
	reading, err := h.service.CreateActivity(context.Background(), testOwner, "Reading", domain.ActivityTypeTime)
	require.NoError(t, err)
	_, _, err = h.service.UpdateLog(context.Background(), testOwner, reading.ID, time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC),
		func(_ domain.Activity, log *domain.ActivityLog) error { return log.AddMinutes(20) })
	require.NoError(t, err)

	h.text(t, MenuDownload)
	require.Equal(t, "Select the start date:", h.transport.lastSent().Text)
	require.Equal(t, "January 2024", h.transport.lastSent().Inline.Rows[0][0].Text)

	h.press(t, "calendar:NAV:2023:12")
	require.Equal(t, "December 2023", h.transport.lastEdit().reply.Inline.Rows[0][0].Text)
	require.True(t, h.state(t).Wizard.In(wizard.FlowDateRange, wizard.StepPickingStart))

	h.press(t, "calendar:DAY:2024:1:5")
	require.True(t, h.state(t).Wizard.In(wizard.FlowDateRange, wizard.StepPickingEnd))

	h.press(t, "calendar:DAY:2024:1:1")
	require.Equal(t, answer{text: msgEndBeforeStart, alert: true}, h.transport.lastAnswer())
	state := h.state(t)
	require.True(t, state.Wizard.In(wizard.FlowDateRange, wizard.StepPickingEnd))
	require.True(t, state.Wizard.StartDate.Equal(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)))

	h.press(t, "calendar:DAY:2024:1:7")
	require.Len(t, h.transport.docs, 3)
	require.Equal(t, "2024-01-05.md", h.transport.docs[0].Filename)
	require.Equal(t, "---\nReading: 20\n---", string(h.transport.docs[1].Content))
	require.Equal(t, msgAllDone, h.transport.lastSent().Text)
	require.False(t, h.state(t).Wizard.Active())
}

func TestStatsPeriodAndRange(t *testing.T) {
	h := newHarness(t)
	run, err := h.service.CreateActivity(context.Background(), testOwner, "Run", domain.ActivityTypeCheckbox)
	require.NoError(t, err)
	_, err = h.service.CreateActivity(context.Background(), testOwner, "Idle", domain.ActivityTypeTime)
	require.NoError(t, err)
	h.press(t, fmt.Sprintf("activity:track:%d", run.ID))

	h.press(t, "stats:week")
	report := h.transport.lastEdit().reply
	require.True(t, report.HTML)
	require.Contains(t, report.Text, "this week")
	require.Contains(t, report.Text, "Run: done 1 times")
	require.NotContains(t, report.Text, "Idle")

	h.press(t, "stats:range")
	require.True(t, h.state(t).Wizard.In(wizard.FlowDateRange, wizard.StepPickingStart))
	h.press(t, "calendar:DAY:2024:1:1")
	h.press(t, "calendar:DAY:2024:1:31")
	require.Contains(t, h.transport.lastEdit().reply.Text, "2024-01-01 – 2024-01-31")
	require.Empty(t, h.transport.docs)
}

func TestRangeStatsCommand(t *testing.T) {
	h := newHarness(t)
	h.text(t, "/range_stats@tracker_bot")
	state := h.state(t)
	require.True(t, state.Wizard.In(wizard.FlowDateRange, wizard.StepPickingStart))
	require.Equal(t, wizard.PurposeStats, state.Wizard.Purpose)
}

func TestUnknownInputs(t *testing.T) {
	h := newHarness(t)
	h.press(t, "bogus")
	require.Equal(t, msgUnknownCallback, h.transport.lastAnswer().text)

	h.text(t, "hello")
	require.Equal(t, msgUseMenu, h.transport.lastSent().Text)

	h.press(t, "calendar:DAY:2024:1:1")
	require.Equal(t, answer{text: msgExpired, alert: true}, h.transport.lastAnswer())
}

type panickingService struct {
	Service
}

func (panickingService) CreateActivity(ctx context.Context, ownerID int64, name string, activityType domain.ActivityType) (*domain.Activity, error) {
	panic("boom")
}

func TestPanicClearsWizard(t *testing.T) {
	h := newHarness(t)
	engine := tracking.NewEngine(h.service)
	h.router = NewRouter(panickingService{Service: h.service}, engine, export.New(h.service), h.sessions, h.transport)

	h.text(t, MenuAddActivity)
	h.press(t, "add_activity:checkbox")

	err := h.router.Handle(context.Background(), Event{
		SessionID: testSession, OwnerID: testOwner, ChatID: testChat, Kind: KindText, Text: "Run",
	})
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "panic"))
	require.Equal(t, msgGenericFailure, h.transport.lastSent().Text)
	require.False(t, h.state(t).Wizard.Active())
}

type countingLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	acquired int
	released int
	err      error
}

func (l *countingLocker) Lock(ctx context.Context, sessionID string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	if l.held[sessionID] {
		return nil, fmt.Errorf("session %s locked twice", sessionID)
	}
	l.held[sessionID] = true
	l.acquired++
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, sessionID)
		l.released++
	}, nil
}

func TestRouterHoldsSessionLockerPerEvent(t *testing.T) {
	h := newHarness(t)
	locker := &countingLocker{held: map[string]bool{}}
	engine := tracking.NewEngine(h.service, tracking.WithClock(func() time.Time { return h.now }))
	h.router = NewRouter(h.service, engine, export.New(h.service), h.sessions, h.transport, WithSessionLocker(locker))

	h.text(t, "/start")
	h.text(t, MenuAddActivity)
	require.Equal(t, 2, locker.acquired)
	require.Equal(t, 2, locker.released)
	require.Empty(t, locker.held)
}

func TestRouterStopsWhenSessionLockFails(t *testing.T) {
	h := newHarness(t)
	locker := &countingLocker{held: map[string]bool{}, err: context.DeadlineExceeded}
	engine := tracking.NewEngine(h.service, tracking.WithClock(func() time.Time { return h.now }))
	h.router = NewRouter(h.service, engine, export.New(h.service), h.sessions, h.transport, WithSessionLocker(locker))

	err := h.router.Handle(context.Background(), Event{
		SessionID: testSession, OwnerID: testOwner, ChatID: testChat, Kind: KindText, Text: MenuAddActivity,
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Empty(t, h.transport.sent)
	require.False(t, h.state(t).Wizard.Active())
}
