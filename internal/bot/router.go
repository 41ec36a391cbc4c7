package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/IvanSitnikov1/tracker-bot/internal/domain"
	"github.com/IvanSitnikov1/tracker-bot/internal/export"
	"github.com/IvanSitnikov1/tracker-bot/internal/observability"
	"github.com/IvanSitnikov1/tracker-bot/internal/session"
	"github.com/IvanSitnikov1/tracker-bot/internal/stats"
	"github.com/IvanSitnikov1/tracker-bot/internal/tracking"
	"github.com/IvanSitnikov1/tracker-bot/internal/wizard"
)

// Service is the activity surface the router needs beyond the tracking engine.
type Service interface {
	CreateActivity(ctx context.Context, ownerID int64, name string, activityType domain.ActivityType) (*domain.Activity, error)
	AggregateForPeriod(ctx context.Context, ownerID int64, start, end time.Time) ([]domain.PeriodTotal, error)
}

// Router turns inbound events into state transitions and replies. Events for
// the same session are handled one at a time; different sessions run in parallel.
// With a shared session store, WithSessionLocker extends that guarantee
// across processes.
type Router struct {
	service   Service
	engine    *tracking.Engine
	exporter  *export.Exporter
	sessions  session.Store
	transport Transport
	logger    *log.Logger
	locks     *sessionLocks
	remote    session.Locker
}

// Option configures a Router.
type Option func(*Router)

// WithLogger overrides the router logger.
func WithLogger(logger *log.Logger) Option {
	return func(r *Router) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithSessionLocker adds a cross-process lock taken after the in-process one.
func WithSessionLocker(locker session.Locker) Option {
	return func(r *Router) {
		r.remote = locker
	}
}

// NewRouter constructs a Router.
func NewRouter(service Service, engine *tracking.Engine, exporter *export.Exporter, sessions session.Store, transport Transport, opts ...Option) *Router {
	r := &Router{
		service:   service,
		engine:    engine,
		exporter:  exporter,
		sessions:  sessions,
		transport: transport,
		logger:    log.New(io.Discard),
		locks:     newSessionLocks(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle processes one event: it loads the session, dispatches, and saves the
// session exactly once. Unexpected failures and panics clear the active
// wizard and send a generic failure message before the error is returned.
func (r *Router) Handle(ctx context.Context, ev Event) (err error) {
	unlock := r.locks.lock(ev.SessionID)
	defer unlock()
	if r.remote != nil {
		release, err := r.remote.Lock(ctx, ev.SessionID)
		if err != nil {
			observability.RecordInbound(string(ev.Kind), "error")
			return err
		}
		defer release()
	}

	state, err := r.sessions.Load(ctx, ev.SessionID)
	if err != nil {
		observability.RecordInbound(string(ev.Kind), "error")
		r.reportFailure(ctx, ev)
		return fmt.Errorf("load session %s: %w", ev.SessionID, err)
	}
	if state.Timers == nil {
		state.Timers = tracking.TimerRegistry{}
	}

	defer func() {
		if rec := recover(); rec != nil {
			state.Wizard.Clear()
			r.reportFailure(ctx, ev)
			err = fmt.Errorf("handler panic: %v", rec)
		}
		if saveErr := r.sessions.Save(ctx, ev.SessionID, state); saveErr != nil && err == nil {
			err = fmt.Errorf("save session %s: %w", ev.SessionID, saveErr)
		}
		result := "ok"
		if err != nil {
			result = "error"
		}
		observability.RecordInbound(string(ev.Kind), result)
	}()

	t := &turn{Router: r, ev: ev, state: &state}
	if err := t.dispatch(ctx); err != nil {
		state.Wizard.Clear()
		r.reportFailure(ctx, ev)
		return err
	}
	return nil
}

func (r *Router) reportFailure(ctx context.Context, ev Event) {
	if ev.Kind == KindCallback && ev.CallbackID != "" {
		if err := r.transport.AnswerCallback(ctx, ev.CallbackID, msgGenericFailure, true); err != nil {
			r.logger.Warn("answer callback failed", "session", ev.SessionID, "err", err)
		}
		return
	}
	if _, err := r.transport.SendMessage(ctx, ev.ChatID, Reply{Text: msgGenericFailure, Menu: MainMenu()}); err != nil {
		r.logger.Warn("send failure notice failed", "session", ev.SessionID, "err", err)
	}
}

// turn is the handling of one event against one loaded session state.
type turn struct {
	*Router
	ev    Event
	state *session.State
}

func (t *turn) dispatch(ctx context.Context) error {
	if t.ev.Kind == KindCallback {
		return t.callback(ctx)
	}
	return t.message(ctx)
}

func (t *turn) send(ctx context.Context, reply Reply) (int64, error) {
	return t.transport.SendMessage(ctx, t.ev.ChatID, reply)
}

func (t *turn) edit(ctx context.Context, reply Reply) error {
	return t.transport.EditMessage(ctx, t.ev.ChatID, t.ev.MessageID, reply)
}

func (t *turn) answer(ctx context.Context, text string, alert bool) {
	if t.ev.CallbackID == "" {
		return
	}
	if err := t.transport.AnswerCallback(ctx, t.ev.CallbackID, text, alert); err != nil {
		t.logger.Warn("answer callback failed", "session", t.ev.SessionID, "err", err)
	}
}

// commandName strips arguments and a trailing @botname from a slash command.
func commandName(text string) string {
	if !strings.HasPrefix(text, "/") {
		return text
	}
	name, _, _ := strings.Cut(text, " ")
	name, _, _ = strings.Cut(name, "@")
	return name
}

func (t *turn) message(ctx context.Context) error {
	text := strings.TrimSpace(t.ev.Text)

	switch commandName(text) {
	case "/start", "/menu":
		t.state.Wizard.Clear()
		_, err := t.send(ctx, Reply{Text: msgWelcome, Menu: MainMenu()})
		return err
	case "/cancel":
		t.state.Wizard.Clear()
		_, err := t.send(ctx, Reply{Text: msgCancelled, Menu: MainMenu()})
		return err
	case MenuAddActivity, "/add":
		t.state.Wizard.StartAddActivity()
		observability.RecordWizard(string(wizard.FlowAddActivity), "started")
		_, err := t.send(ctx, Reply{Text: msgChooseType, Inline: TypeKeyboard()})
		return err
	case MenuActivities, "/activities":
		t.state.Wizard.Clear()
		return t.showActivities(ctx)
	case MenuDownload, "/download":
		t.state.Wizard.StartDateRange(wizard.PurposeExport)
		return t.sendCalendar(ctx)
	case MenuStatistics, "/stats":
		t.state.Wizard.Clear()
		_, err := t.send(ctx, Reply{Text: msgChoosePeriod, Inline: StatsKeyboard()})
		return err
	case "/range_stats":
		t.state.Wizard.StartDateRange(wizard.PurposeStats)
		return t.sendCalendar(ctx)
	}

	switch {
	case t.state.Wizard.In(wizard.FlowAddActivity, wizard.StepAwaitingName):
		return t.submitName(ctx, text)
	case t.state.Wizard.In(wizard.FlowManualTime, wizard.StepAwaitingMinutes):
		return t.submitMinutes(ctx, text)
	}
	_, err := t.send(ctx, Reply{Text: msgUseMenu, Menu: MainMenu()})
	return err
}

func (t *turn) submitName(ctx context.Context, name string) error {
	var created *domain.Activity
	outcome, err := t.state.Wizard.SubmitName(name, func(activityType domain.ActivityType, name string) error {
		activity, err := t.service.CreateActivity(ctx, t.ev.OwnerID, name, activityType)
		created = activity
		return err
	})
	observability.RecordWizard(string(wizard.FlowAddActivity), outcome.String())

	switch outcome {
	case wizard.OutcomeCompleted:
		_, err := t.send(ctx, Reply{
			Text: fmt.Sprintf("Activity \"%s\" (%s) added!", created.Name, created.Type),
			Menu: MainMenu(),
		})
		return err
	case wizard.OutcomeRetry:
		prompt := msgNameInvalid
		if errors.Is(err, domain.ErrDuplicateName) {
			prompt = msgNameTaken
		}
		_, sendErr := t.send(ctx, Reply{Text: prompt})
		return sendErr
	}
	return err
}

func (t *turn) submitMinutes(ctx context.Context, text string) error {
	outcome, entry, err := t.state.Wizard.SubmitMinutes(text, func(activityID int64, minutes int) error {
		_, err := t.engine.AddMinutes(ctx, t.ev.OwnerID, activityID, minutes)
		return err
	})
	observability.RecordWizard(string(wizard.FlowManualTime), outcome.String())

	switch outcome {
	case wizard.OutcomeRetry:
		prompt := msgWholeNumber
		if errors.Is(err, domain.ErrMinutesLimit) {
			prompt = msgTooManyMinutes
		}
		_, sendErr := t.send(ctx, Reply{Text: prompt})
		return sendErr
	case wizard.OutcomeAborted:
		notice := ""
		switch {
		case errors.Is(err, domain.ErrActivityNotFound):
			notice = msgNotFound
		case errors.Is(err, domain.ErrTypeMismatch):
			notice = msgNotTimeActivity
		}
		if notice == "" {
			return err
		}
		_, sendErr := t.send(ctx, Reply{Text: notice, Menu: MainMenu()})
		return sendErr
	}

	if entry.ViewMessageID != 0 {
		if err := t.refreshView(ctx, entry.ViewMessageID); err != nil {
			return err
		}
	}
	t.deleteQuietly(ctx, t.ev.MessageID)
	t.deleteQuietly(ctx, entry.PromptMessageID)
	_, err = t.send(ctx, Reply{Text: fmt.Sprintf("✅ Added %d min.", entry.Minutes)})
	return err
}

func (t *turn) deleteQuietly(ctx context.Context, messageID int64) {
	if messageID == 0 {
		return
	}
	if err := t.transport.DeleteMessage(ctx, t.ev.ChatID, messageID); err != nil {
		t.logger.Debug("delete message failed", "session", t.ev.SessionID, "message", messageID, "err", err)
	}
}

func (t *turn) showActivities(ctx context.Context) error {
	view, err := t.engine.LoadView(ctx, t.ev.OwnerID, t.state.Timers)
	if err != nil {
		return err
	}
	if view.Empty() {
		_, err = t.send(ctx, Reply{Text: msgNoActivities})
		return err
	}
	_, err = t.send(ctx, Reply{Text: msgPickActivity, Inline: ActivitiesKeyboard(view)})
	return err
}

// refreshView re-renders the activity list in place through the same path
// used for the first display.
func (t *turn) refreshView(ctx context.Context, messageID int64) error {
	view, err := t.engine.LoadView(ctx, t.ev.OwnerID, t.state.Timers)
	if err != nil {
		return err
	}
	reply := Reply{Inline: ActivitiesKeyboard(view)}
	if view.Empty() {
		reply = Reply{Text: msgNoActivities}
	}
	return t.transport.EditMessage(ctx, t.ev.ChatID, messageID, reply)
}

func (t *turn) sendCalendar(ctx context.Context) error {
	observability.RecordWizard(string(wizard.FlowDateRange), "started")
	_, err := t.send(ctx, Reply{
		Text:   t.state.Wizard.CalendarPrompt(),
		Inline: CalendarKeyboard(wizard.MonthOf(t.engine.Today())),
	})
	return err
}

func (t *turn) callback(ctx context.Context) error {
	cb, err := ParseCallback(t.ev.CallbackData)
	if err != nil {
		t.answer(ctx, msgUnknownCallback, false)
		return nil
	}

	switch cb.Kind {
	case CallbackAddType:
		return t.chooseType(ctx, cb)
	case CallbackTrack:
		return t.track(ctx, cb)
	case CallbackManualTime:
		return t.manualTime(ctx, cb)
	case CallbackCalendarNav:
		if err := t.edit(ctx, Reply{Inline: CalendarKeyboard(cb.Month)}); err != nil {
			return err
		}
		t.answer(ctx, "", false)
		return nil
	case CallbackCalendarDay:
		return t.pickDay(ctx, cb)
	case CallbackStats:
		return t.showStats(ctx, cb)
	}
	t.answer(ctx, "", false)
	return nil
}

func (t *turn) chooseType(ctx context.Context, cb Callback) error {
	if err := t.state.Wizard.ChooseType(cb.ActivityType); err != nil {
		observability.RecordWizard(string(wizard.FlowAddActivity), wizard.OutcomeRetry.String())
		t.answer(ctx, msgExpired, true)
		return nil
	}
	observability.RecordWizard(string(wizard.FlowAddActivity), wizard.OutcomeAdvanced.String())
	if err := t.edit(ctx, Reply{Text: msgEnterName}); err != nil {
		return err
	}
	t.answer(ctx, "", false)
	return nil
}

func (t *turn) track(ctx context.Context, cb Callback) error {
	result, err := t.engine.Track(ctx, t.ev.OwnerID, cb.ActivityID, t.state.Timers)
	if errors.Is(err, domain.ErrActivityNotFound) {
		t.answer(ctx, msgNotFound, true)
		return nil
	}
	if err != nil {
		return err
	}
	if err := t.refreshView(ctx, t.ev.MessageID); err != nil {
		return err
	}

	switch result.Action {
	case tracking.ActionTimerStarted:
		t.answer(ctx, "Timer started", false)
	case tracking.ActionTimerStopped:
		t.answer(ctx, fmt.Sprintf("+%d min.", result.Minutes), false)
	default:
		t.answer(ctx, "", false)
	}
	return nil
}

func (t *turn) manualTime(ctx context.Context, cb Callback) error {
	promptID, err := t.send(ctx, Reply{Text: msgEnterMinutes})
	if err != nil {
		return err
	}
	t.state.Wizard.StartManualTime(cb.ActivityID, t.ev.MessageID, promptID)
	observability.RecordWizard(string(wizard.FlowManualTime), "started")
	t.answer(ctx, "", false)
	return nil
}

func (t *turn) pickDay(ctx context.Context, cb Callback) error {
	if t.state.Wizard.Flow != wizard.FlowDateRange {
		t.answer(ctx, msgExpired, true)
		return nil
	}
	purpose := t.state.Wizard.Purpose
	outcome, picked, err := t.state.Wizard.PickDay(cb.Month.Day(cb.Day))
	observability.RecordWizard(string(wizard.FlowDateRange), outcome.String())

	switch outcome {
	case wizard.OutcomeAdvanced:
		if err := t.edit(ctx, Reply{Text: t.state.Wizard.CalendarPrompt(), Inline: CalendarKeyboard(cb.Month)}); err != nil {
			return err
		}
		t.answer(ctx, "", false)
		return nil
	case wizard.OutcomeRetry:
		if errors.Is(err, domain.ErrInvalidRange) {
			t.answer(ctx, msgEndBeforeStart, true)
		} else {
			t.answer(ctx, msgExpired, true)
		}
		return nil
	case wizard.OutcomeAborted:
		t.answer(ctx, msgExpired, true)
		return nil
	}

	t.answer(ctx, "", false)
	if purpose == wizard.PurposeStats {
		report, err := stats.ForRange(ctx, t.service, t.ev.OwnerID, picked.Start, picked.End, "")
		if err != nil {
			return err
		}
		return t.edit(ctx, Reply{Text: report.Render(), HTML: true})
	}
	return t.exportRange(ctx, picked)
}

func (t *turn) exportRange(ctx context.Context, picked wizard.Range) error {
	notice := fmt.Sprintf("Preparing files from <b>%s</b> to <b>%s</b>...",
		picked.Start.Format(domain.DayLayout), picked.End.Format(domain.DayLayout))
	if err := t.edit(ctx, Reply{Text: notice, HTML: true}); err != nil {
		return err
	}

	artifacts, err := t.exporter.Export(ctx, t.ev.OwnerID, picked.Start, picked.End)
	if err != nil {
		return err
	}
	for _, artifact := range artifacts {
		if err := t.transport.SendDocument(ctx, t.ev.ChatID, Document{Filename: artifact.Filename, Content: artifact.Content}); err != nil {
			return err
		}
	}
	_, err = t.send(ctx, Reply{Text: msgAllDone, Menu: MainMenu()})
	return err
}

func (t *turn) showStats(ctx context.Context, cb Callback) error {
	if cb.Period == StatsRange {
		t.state.Wizard.StartDateRange(wizard.PurposeStats)
		observability.RecordWizard(string(wizard.FlowDateRange), "started")
		if err := t.edit(ctx, Reply{
			Text:   t.state.Wizard.CalendarPrompt(),
			Inline: CalendarKeyboard(wizard.MonthOf(t.engine.Today())),
		}); err != nil {
			return err
		}
		t.answer(ctx, "", false)
		return nil
	}

	period, err := stats.ParsePeriod(cb.Period)
	if err != nil {
		t.answer(ctx, msgUnknownCallback, false)
		return nil
	}
	report, err := stats.ForPeriod(ctx, t.service, t.ev.OwnerID, period, t.engine.Today())
	if err != nil {
		return err
	}
	if err := t.edit(ctx, Reply{Text: report.Render(), HTML: true}); err != nil {
		return err
	}
	t.answer(ctx, "", false)
	return nil
}
