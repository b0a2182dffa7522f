package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"reservation-dashboard/config"
	"reservation-dashboard/internal/airtable"
	"reservation-dashboard/internal/board"
	"reservation-dashboard/internal/live"
	"reservation-dashboard/internal/notification"
	"reservation-dashboard/internal/parse"
	"reservation-dashboard/internal/render"
	"reservation-dashboard/internal/store"
)

// ErrLocalOnly is reported for remote writes while no reservation store
// client is configured.
var ErrLocalOnly = errors.New("reservation store not configured")

// ReservationClient is the subset of the record store client the service uses.
type ReservationClient interface {
	ListToday(ctx context.Context) ([]board.Reservation, error)
	CreateWalkIn(ctx context.Context, tableID string, at time.Time) (*airtable.Record, error)
	UpdateStatus(ctx context.Context, recordID, status string) error
}

// Notifier queues push notifications for newly booked slots.
type Notifier interface {
	Dispatch(job notification.Job)
}

// Options wires the optional collaborators of a Service. A nil Client
// runs the dashboard in local-only mode; a nil Store skips the history.
type Options struct {
	Client   ReservationClient
	Store    store.Store
	Hub      *live.Hub
	Notifier Notifier
}

// EditOutcome reports a user edit. The local change always stands;
// RemoteErr carries a failed walk-in write.
type EditOutcome struct {
	Change    board.SlotChange
	Record    *airtable.Record
	RemoteErr error
}

// Service owns the board and drives the clock, refresh and daily reset tasks.
type Service struct {
	cfg      config.DashboardConfig
	board    *board.Board
	client   ReservationClient
	store    store.Store
	hub      *live.Hub
	notifier Notifier

	publishMu sync.Mutex
	observers []func()

	announceMu sync.Mutex
	announced  map[string]bool

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// NewService creates the dashboard service around b.
func NewService(cfg config.DashboardConfig, b *board.Board, opts Options) *Service {
	hub := opts.Hub
	if hub == nil {
		hub = live.NewHub()
	}
	return &Service{
		cfg:       cfg,
		board:     b,
		client:    opts.Client,
		store:     opts.Store,
		hub:       hub,
		notifier:  opts.Notifier,
		announced: make(map[string]bool),
		now:       time.Now,
		after:     time.After,
	}
}

func (s *Service) Board() *board.Board { return s.board }

func (s *Service) Hub() *live.Hub { return s.hub }

// LocalOnly reports whether remote reads and writes are disabled.
func (s *Service) LocalOnly() bool { return s.client == nil }

// OnChange registers fn to run after every re-render. Register observers
// before Run.
func (s *Service) OnChange(fn func()) {
	s.observers = append(s.observers, fn)
}

// Clock returns the formatted local time and date.
func (s *Service) Clock() render.Clock {
	return render.ClockAt(s.now().In(s.board.Location()))
}

// Page renders the full dashboard document for the current state.
func (s *Service) Page() ([]byte, error) {
	return render.Page(render.PageView{
		Clock:  s.Clock(),
		Tables: s.board.Snapshot(),
		Live:   true,
	})
}

// BoardMessage returns the board event for the current state.
func (s *Service) BoardMessage() (live.Message, error) {
	markup, err := render.Tables(s.board.Snapshot())
	if err != nil {
		return live.Message{}, err
	}
	return live.Message{Event: live.EventBoard, Data: live.BoardData{HTML: string(markup)}}, nil
}

// Attach registers conn with the hub and sends it the current board and
// clock. It runs under the publish lock, so the client receives every
// render after the initial one.
func (s *Service) Attach(conn *websocket.Conn) error {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	msg, err := s.BoardMessage()
	if err != nil {
		return err
	}
	return s.hub.Register(conn, msg, live.Message{Event: live.EventClock, Data: s.Clock()})
}

// Run starts the clock, refresh and daily reset tasks and blocks until ctx
// is cancelled.
func (s *Service) Run(ctx context.Context) {
	log.WithFields(log.Fields{
		"tables":     len(s.board.Snapshot()),
		"refresh":    s.cfg.RefreshInterval,
		"local_only": s.LocalOnly(),
	}).Info("Starting dashboard service...")

	s.publish()
	go s.refresh(ctx)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		s.runClock(ctx)
	}()
	go func() {
		defer wg.Done()
		s.runRefresh(ctx)
	}()
	go func() {
		defer wg.Done()
		s.runReset(ctx)
	}()
	wg.Wait()

	log.Info("Dashboard service shutting down.")
}

func (s *Service) runClock(ctx context.Context) {
	ticker := time.NewTicker(interval(s.cfg.ClockInterval, time.Second))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.hub.Broadcast(live.EventClock, s.Clock())
		}
	}
}

// runRefresh starts a refresh on every tick without waiting for the
// previous one.
func (s *Service) runRefresh(ctx context.Context) {
	ticker := time.NewTicker(interval(s.cfg.RefreshInterval, 30*time.Second))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			go s.refresh(ctx)
		}
	}
}

func (s *Service) refresh(ctx context.Context) {
	if err := s.RefreshOnce(ctx); err != nil {
		log.WithError(err).Error("refresh cycle failed")
	}
}

// runReset arms a one-shot timer for the next local midnight and re-arms it
// after every firing. The day is taken from the wall clock when the timer
// fires, so a late timer lands on the real day and an early one resets
// nothing.
func (s *Service) runReset(ctx context.Context) {
	for {
		now := s.now()
		next := board.NextMidnight(now, s.board.Location())
		log.WithField("at", next).Debug("daily reset scheduled")
		select {
		case <-ctx.Done():
			return
		case <-s.after(next.Sub(now)):
			fired := s.now()
			if fired.Before(next) {
				log.WithField("at", fired).Debug("reset timer fired early; re-arming")
				continue
			}
			s.ResetOnce(ctx, fired)
		}
	}
}

// RefreshOnce fetches today's reservations and merges them into the board.
func (s *Service) RefreshOnce(ctx context.Context) error {
	if s.client == nil {
		return nil
	}

	reservations, err := s.client.ListToday(ctx)
	if err != nil {
		return fmt.Errorf("failed to list reservations: %w", err)
	}

	changes := s.board.Merge(reservations)
	s.publish()

	log.WithFields(log.Fields{"reservations": len(reservations), "changed": len(changes)}).Debug("refresh cycle finished")
	if len(changes) == 0 {
		return nil
	}

	fresh := s.unannounced(ctx, changes)
	s.record(ctx, changes)
	for _, c := range fresh {
		s.notifier.Dispatch(notification.JobFromChange(c))
	}
	return nil
}

// unannounced returns the booked changes whose reservation has not been
// announced before, by this process or in the recorded history, and marks
// them announced.
func (s *Service) unannounced(ctx context.Context, changes []board.SlotChange) []board.SlotChange {
	if s.notifier == nil {
		return nil
	}

	s.announceMu.Lock()
	defer s.announceMu.Unlock()

	var candidates []board.SlotChange
	var lookup []string
	for _, c := range changes {
		if !c.Status.Booked() || s.announced[c.ReservationID] {
			continue
		}
		candidates = append(candidates, c)
		if c.ReservationID != "" {
			lookup = append(lookup, c.ReservationID)
		}
	}

	seen := map[string]bool{}
	if s.store != nil && len(lookup) > 0 {
		found, err := s.store.SeenReservations(ctx, lookup)
		if err != nil {
			log.WithError(err).Warn("failed to check announced reservations")
		} else {
			seen = found
		}
	}

	var fresh []board.SlotChange
	for _, c := range candidates {
		if c.ReservationID != "" {
			if seen[c.ReservationID] || s.announced[c.ReservationID] {
				continue
			}
			s.announced[c.ReservationID] = true
		}
		fresh = append(fresh, c)
	}
	return fresh
}

// ResetOnce clears the board for the day containing at.
func (s *Service) ResetOnce(ctx context.Context, at time.Time) {
	cleared := s.board.ResetDaily(at)
	s.announceMu.Lock()
	s.announced = make(map[string]bool)
	s.announceMu.Unlock()
	log.WithFields(log.Fields{"day": store.DayKey(s.board.Day()), "cleared": len(cleared)}).Info("daily reset")
	s.publish()
	s.record(ctx, cleared)
}

// ApplyUserEdit changes a slot locally, re-renders, and then records a
// walk-in with the reservation store. A failed write is reported in the
// outcome and never rolls the edit back.
func (s *Service) ApplyUserEdit(ctx context.Context, tableID, label string, status board.Status) (EditOutcome, error) {
	change, err := s.board.ApplyEdit(tableID, label, status)
	if err != nil {
		return EditOutcome{}, err
	}
	s.publish()
	s.record(ctx, []board.SlotChange{change})

	outcome := EditOutcome{Change: change}
	if status != board.StatusWalkIn {
		return outcome, nil
	}

	fields := log.Fields{"table": tableID, "slot": label}
	if s.client == nil {
		log.WithFields(fields).Error("walk-in not recorded: reservation store not configured")
		outcome.RemoteErr = ErrLocalOnly
		return outcome, nil
	}

	start, err := parse.ParseSlotLabel(label)
	if err != nil {
		outcome.RemoteErr = err
		return outcome, nil
	}
	day := s.board.Day()
	at := time.Date(day.Year(), day.Month(), day.Day(), start.Hour, start.Minute, 0, 0, s.board.Location())

	record, err := s.client.CreateWalkIn(ctx, tableID, at)
	if err != nil {
		log.WithFields(fields).WithError(err).Error("failed to record walk-in")
		outcome.RemoteErr = err
		return outcome, nil
	}
	outcome.Record = record
	return outcome, nil
}

// UpdateReservation changes the status of an existing remote record.
func (s *Service) UpdateReservation(ctx context.Context, recordID, status string) error {
	if s.client == nil {
		return ErrLocalOnly
	}
	return s.client.UpdateStatus(ctx, recordID, status)
}

// publish re-renders the board and pushes it to every connected dashboard.
func (s *Service) publish() {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()

	msg, err := s.BoardMessage()
	if err != nil {
		log.WithError(err).Error("failed to render board")
		return
	}
	s.hub.Broadcast(msg.Event, msg.Data)
	for _, fn := range s.observers {
		fn()
	}
}

func (s *Service) record(ctx context.Context, changes []board.SlotChange) {
	if s.store == nil || len(changes) == 0 {
		return
	}
	if err := s.store.RecordSlotChanges(ctx, s.now(), changes); err != nil {
		log.WithError(err).WithField("changes", len(changes)).Error("failed to record slot history")
	}
}

func interval(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
