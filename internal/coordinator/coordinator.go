// Package coordinator owns the refresh cycle: it loads the credential,
// fetches every collection for the current window, and publishes an
// immutable snapshot that calendar queries normalize on demand.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"cloud.google.com/go/civil"
	"golang.org/x/sync/errgroup"

	"vulcancal/internal/events"
	appLog "vulcancal/internal/log"
	"vulcancal/internal/model"
	"vulcancal/internal/record"
	"vulcancal/internal/slug"
	"vulcancal/internal/token"
)

var (
	// ErrEmptyAccountResult fails a refresh when the credential has no
	// registered pupil.
	ErrEmptyAccountResult = errors.New("no accounts returned for the credential")
	// ErrNotReady is returned by queries before the first successful refresh.
	ErrNotReady = errors.New("no data fetched yet")
	// ErrUnsupportedKind is returned for kinds that have no calendar.
	ErrUnsupportedKind = errors.New("unsupported calendar kind")
)

// Refresh stages reported in RefreshError.
const (
	StageToken     = "token"
	StageAccounts  = "accounts"
	StageSchedule  = "schedule"
	StageHomework  = "homework"
	StageExams     = "exams"
	StageVacations = "vacations"
)

// RefreshError is a failed refresh cycle. The previous snapshot is kept.
type RefreshError struct {
	Stage string
	Err   error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("refresh %s: %v", e.Stage, e.Err)
}

func (e *RefreshError) Unwrap() error { return e.Err }

// TokenLoader supplies the current credential.
type TokenLoader interface {
	Load() (*token.Token, error)
}

// Source fetches raw collections for one credential. Date ranges are
// inclusive.
type Source interface {
	Accounts(ctx context.Context) ([]model.AccountInfo, error)
	Schedule(ctx context.Context, acct model.AccountInfo, from, to civil.Date) ([]record.Record, error)
	Homework(ctx context.Context, acct model.AccountInfo, from, to civil.Date) ([]record.Record, error)
	Exams(ctx context.Context, acct model.AccountInfo, from, to civil.Date) ([]record.Record, error)
	Vacations(ctx context.Context, acct model.AccountInfo, from, to civil.Date) ([]record.Record, error)
}

// Connector builds a Source for a freshly loaded credential.
type Connector func(tok *token.Token) Source

// Options tune the refresh window and normalization.
type Options struct {
	Location             *time.Location
	HorizonDays          int
	SchoolYearStartMonth time.Month
	// Now overrides the clock in tests.
	Now func() time.Time
}

// Snapshot is the raw result of one successful refresh. It is never
// mutated after publication.
type Snapshot struct {
	FetchedAt time.Time
	From, To  civil.Date

	Name string
	UID  string
	Slug string

	Account model.AccountInfo

	// Items holds the raw records per query kind; vacations are already
	// merged into the schedule kind.
	Items map[model.Kind][]record.Record
	// Counts is the number of fetched records per collection.
	Counts map[string]int
}

// Status describes the most recent refresh attempts.
type Status struct {
	LastAttempt time.Time                    `json:"last_attempt"`
	LastSuccess time.Time                    `json:"last_success"`
	LastError   string                       `json:"last_error,omitempty"`
	Name        string                       `json:"name,omitempty"`
	Slug        string                       `json:"slug,omitempty"`
	Window      [2]string                    `json:"window,omitempty"`
	Reports     map[model.Kind]events.Report `json:"reports,omitempty"`
	Counts      map[string]int               `json:"counts,omitempty"`
}

type Coordinator struct {
	tokens  TokenLoader
	connect Connector
	opts    Options

	snap atomic.Pointer[Snapshot]

	refreshMu sync.Mutex

	statusMu sync.RWMutex
	status   Status
}

func New(tokens TokenLoader, connect Connector, opts Options) *Coordinator {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.HorizonDays < 0 {
		opts.HorizonDays = 0
	}
	if opts.SchoolYearStartMonth < time.January || opts.SchoolYearStartMonth > time.December {
		opts.SchoolYearStartMonth = time.September
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Coordinator{tokens: tokens, connect: connect, opts: opts}
}

// DateRange returns the inclusive fetch window: from the start of the
// current school year to today + horizonDays.
func DateRange(today civil.Date, startMonth time.Month, horizonDays int) (civil.Date, civil.Date) {
	start := civil.Date{Year: today.Year, Month: startMonth, Day: 1}
	if today.Before(start) {
		start.Year--
	}
	return start, today.AddDays(horizonDays)
}

// Refresh runs one fetch cycle and publishes a new snapshot. On failure
// the previous snapshot stays in place and a *RefreshError is returned.
// Concurrent calls are serialized.
func (c *Coordinator) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	now := c.opts.Now()
	snap, err := c.fetch(ctx, now)

	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	c.status.LastAttempt = now
	if err != nil {
		c.status.LastError = err.Error()
		appLog.Error("refresh failed", err)
		return err
	}

	reports := make(map[model.Kind]events.Report, len(model.QueryKinds))
	for _, kind := range model.QueryKinds {
		_, rep := events.Normalize(kind, snap.Items[kind], c.normalizeOptions(snap, now))
		reports[kind] = rep
	}

	c.snap.Store(snap)
	c.status.LastSuccess = now
	c.status.LastError = ""
	c.status.Name = snap.Name
	c.status.Slug = snap.Slug
	c.status.Window = [2]string{snap.From.String(), snap.To.String()}
	c.status.Reports = reports
	c.status.Counts = snap.Counts

	appLog.Info("refresh done",
		"pupil", snap.Account.PupilID,
		"from", snap.From.String(),
		"to", snap.To.String(),
		"schedule", snap.Counts[StageSchedule],
		"homework", snap.Counts[StageHomework],
		"exams", snap.Counts[StageExams],
		"vacations", snap.Counts[StageVacations],
	)
	return nil
}

func (c *Coordinator) fetch(ctx context.Context, now time.Time) (*Snapshot, error) {
	tok, err := c.tokens.Load()
	if err != nil {
		return nil, &RefreshError{Stage: StageToken, Err: err}
	}
	src := c.connect(tok)

	accounts, err := src.Accounts(ctx)
	if err != nil {
		return nil, &RefreshError{Stage: StageAccounts, Err: err}
	}
	if len(accounts) == 0 {
		return nil, &RefreshError{Stage: StageAccounts, Err: ErrEmptyAccountResult}
	}
	acct := accounts[0]

	today := civil.DateOf(now.In(c.opts.Location))
	from, to := DateRange(today, c.opts.SchoolYearStartMonth, c.opts.HorizonDays)

	type job struct {
		stage string
		fetch func(context.Context, model.AccountInfo, civil.Date, civil.Date) ([]record.Record, error)
		out   []record.Record
	}
	jobs := []*job{
		{stage: StageSchedule, fetch: src.Schedule},
		{stage: StageHomework, fetch: src.Homework},
		{stage: StageExams, fetch: src.Exams},
		{stage: StageVacations, fetch: src.Vacations},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, j := range jobs {
		g.Go(func() error {
			items, err := j.fetch(gctx, acct, from, to)
			if err != nil {
				return &RefreshError{Stage: j.stage, Err: err}
			}
			j.out = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	schedule := jobs[0].out
	vacations := jobs[3].out
	merged := make([]record.Record, 0, len(schedule)+len(vacations))
	merged = append(merged, schedule...)
	merged = append(merged, vacations...)

	counts := make(map[string]int, len(jobs))
	for _, j := range jobs {
		counts[j.stage] = len(j.out)
	}

	return &Snapshot{
		FetchedAt: now,
		From:      from,
		To:        to,
		Name:      tok.Name,
		UID:       tok.UID,
		Slug:      slug.Make(tok.Name),
		Account:   acct,
		Items: map[model.Kind][]record.Record{
			model.KindSchedule: merged,
			model.KindHomework: jobs[1].out,
			model.KindExam:     jobs[2].out,
		},
		Counts: counts,
	}, nil
}

// Snapshot returns the current snapshot, or nil before the first
// successful refresh.
func (c *Coordinator) Snapshot() *Snapshot {
	return c.snap.Load()
}

// Status returns a copy of the refresh status.
func (c *Coordinator) Status() Status {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()
	return c.status
}

func (c *Coordinator) Location() *time.Location { return c.opts.Location }

func (c *Coordinator) normalizeOptions(snap *Snapshot, now time.Time) events.Options {
	acct := snap.Account
	return events.Options{
		Location: c.opts.Location,
		Now:      now,
		Account:  &acct,
	}
}

// Events normalizes the current snapshot for kind.
func (c *Coordinator) Events(kind model.Kind) ([]model.Event, error) {
	if !queryable(kind) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, kind)
	}
	snap := c.snap.Load()
	if snap == nil {
		return nil, ErrNotReady
	}
	evs, _ := events.Normalize(kind, snap.Items[kind], c.normalizeOptions(snap, c.opts.Now()))
	return evs, nil
}

// EventsInRange returns the events of kind overlapping [start, end),
// sorted by start.
func (c *Coordinator) EventsInRange(kind model.Kind, start, end time.Time) ([]model.Event, error) {
	evs, err := c.Events(kind)
	if err != nil {
		return nil, err
	}
	return events.InRange(evs, start, end, c.opts.Location), nil
}

// NextEvent returns the soonest event of kind that has not ended yet.
func (c *Coordinator) NextEvent(kind model.Kind) (model.Event, bool, error) {
	evs, err := c.Events(kind)
	if err != nil {
		return model.Event{}, false, err
	}
	ev, ok := events.Next(evs, c.opts.Now(), c.opts.Location)
	return ev, ok, nil
}

func queryable(kind model.Kind) bool {
	for _, k := range model.QueryKinds {
		if k == kind {
			return true
		}
	}
	return false
}
