package reconcile

import (
	"context"
	"errors"

	"teamdash/backend"
	"teamdash/model"
	"teamdash/services"
	"teamdash/stream"
)

var (
	ErrSessionClosed = errors.New("session closed")
	ErrNoTeamView    = errors.New("no team is open")
)

// Options tune a Session.
type Options struct {
	Filters services.TaskFilters
	// OnHeal, if set, is called from the healing worker after each pass.
	OnHeal func(removed []string)
}

// State is a copy of a session's view state.
type State struct {
	View          ViewState            `json:"view"`
	Filters       services.TaskFilters `json:"filters"`
	DetailsTaskID string               `json:"detailsTaskId,omitempty"`
	RosterOpen    bool                 `json:"rosterOpen"`
	Scopes        []string             `json:"scopes"`
}

// Session keeps one signed-in user's dashboard consistent with the database.
// A single loop goroutine owns all view state; subscriptions feed it through
// the inbox and commands run on it.
type Session struct {
	db       backend.Backend
	p        backend.Principal
	r        Renderer
	logger   *services.Logger
	registry *Registry
	heal     *healer

	ctx    context.Context
	cancel context.CancelFunc
	inbox  chan message
	cmds   chan command
	done   chan struct{}

	// loop-owned
	view       ViewState
	filters    services.TaskFilters
	live       []model.Team
	team       *model.Team
	teamInLive bool
	details    string
	rosterOpen bool
}

type message struct {
	h     *handle
	apply func()
}

type command struct {
	fn    func() error
	reply chan error
}

// handle is one live subscription: its stream plus the context that marks
// it as current.
type handle struct {
	ctx    context.Context
	cancel context.CancelFunc
	stop   func()
}

func (h *handle) Cancel() {
	h.cancel()
	h.stop()
}

// Open starts a session showing the personal view with global subscriptions
// for teams, invites and notifications.
func Open(ctx context.Context, db backend.Backend, p backend.Principal, r Renderer, opts Options) (*Session, error) {
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		db:       db,
		p:        p,
		r:        r,
		logger:   services.NewLogger(ctx),
		registry: NewRegistry(),
		ctx:      ctx,
		cancel:   cancel,
		inbox:    make(chan message),
		cmds:     make(chan command),
		done:     make(chan struct{}),
		filters:  opts.Filters.Normalize(),
	}
	s.heal = startHealer(ctx, db, p.UID, opts.OnHeal)
	go s.loop()

	err := s.do(func() error {
		s.startGlobal()
		s.showPersonal()
		return nil
	})
	if err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Session) loop() {
	defer close(s.done)
	defer s.registry.CancelAll()
	for {
		select {
		case <-s.ctx.Done():
			return
		case m := <-s.inbox:
			if m.h.ctx.Err() != nil {
				// from a subscription that has since been cancelled
				continue
			}
			m.apply()
		case c := <-s.cmds:
			c.reply <- c.fn()
		}
	}
}

// do runs fn on the loop and waits for its result.
func (s *Session) do(fn func() error) error {
	c := command{fn: fn, reply: make(chan error, 1)}
	select {
	case s.cmds <- c:
	case <-s.done:
		return ErrSessionClosed
	}
	select {
	case err := <-c.reply:
		return err
	case <-s.done:
		return ErrSessionClosed
	}
}

// userAction is do for commands the user asked for; failures are also
// reported through the renderer.
func (s *Session) userAction(fn func() error) error {
	return s.do(func() error {
		err := fn()
		if err != nil {
			s.r.RenderError(err.Error())
		}
		return err
	})
}

// subscribe starts a pump from open's stream into the loop under scope. on
// runs on the loop for every event while the subscription is current.
func subscribe[T any](s *Session, scope string, open func(ctx context.Context) *stream.Stream[T], on func(stream.Event[T])) {
	ctx, cancel := context.WithCancel(s.ctx)
	st := open(ctx)
	h := &handle{ctx: ctx, cancel: cancel, stop: st.Cancel}
	s.registry.Add(scope, h)

	go func() {
		for ev := range st.Events() {
			ev := ev
			select {
			case s.inbox <- message{h: h, apply: func() { on(ev) }}:
			case <-ctx.Done():
				return
			}
		}
	}()
}

// ShowPersonal switches to the personal task list.
func (s *Session) ShowPersonal() error {
	return s.userAction(func() error {
		s.showPersonal()
		return nil
	})
}

// ShowTeam switches to teamID. Unlike background changes, a team the user
// cannot open is reported back.
func (s *Session) ShowTeam(teamID string) error {
	return s.userAction(func() error {
		team, err := services.GetTeam(s.ctx, s.db, teamID)
		if err != nil {
			return err
		}
		if !team.IsMember(s.p.UID) {
			return services.ErrNotMember
		}
		s.showTeam(*team)
		return nil
	})
}

// SetFilters changes the status filter and sort order of the task list.
func (s *Session) SetFilters(f services.TaskFilters) error {
	return s.userAction(func() error {
		s.filters = f.Normalize()
		s.registry.Cancel(ScopeTasks)
		s.registry.CancelPrefix(ScopeProgress)
		s.subscribeTasks()
		return nil
	})
}

// OpenDetails opens the subtasks and updates of a team task.
func (s *Session) OpenDetails(taskID string) error {
	return s.userAction(func() error {
		if s.team == nil {
			return ErrNoTeamView
		}
		if _, err := services.GetTeamTask(s.ctx, s.db, s.team.ID, taskID); err != nil {
			return err
		}
		s.registry.Cancel(ScopeDetails)
		s.details = taskID
		s.subscribeDetails(s.team.ID, taskID)
		s.refreshAssignees()
		return nil
	})
}

func (s *Session) CloseDetails() error {
	return s.userAction(func() error {
		s.closeDetails()
		return nil
	})
}

// OpenRoster opens the member management surface of the current team.
func (s *Session) OpenRoster() error {
	return s.userAction(func() error {
		if s.team == nil {
			return ErrNoTeamView
		}
		members, err := services.MemberProfiles(s.ctx, s.db, *s.team)
		if err != nil {
			return err
		}
		s.rosterOpen = true
		s.r.RenderRoster(members)
		return nil
	})
}

func (s *Session) CloseRoster() error {
	return s.userAction(func() error {
		s.rosterOpen = false
		return nil
	})
}

func (s *Session) State() (State, error) {
	var st State
	err := s.do(func() error {
		st = State{
			View:          s.view,
			Filters:       s.filters,
			DetailsTaskID: s.details,
			RosterOpen:    s.rosterOpen,
			Scopes:        s.registry.Scopes(),
		}
		return nil
	})
	return st, err
}

// Close stops every subscription and the healing worker. Safe to call more
// than once.
func (s *Session) Close() {
	s.cancel()
	<-s.done
	s.heal.Wait()
}

// Done is closed once the session has stopped.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) startGlobal() {
	subscribe(s, ScopeGlobal, func(ctx context.Context) *stream.Stream[[]model.Team] {
		return services.WatchUserTeams(ctx, s.db, s.p.UID)
	}, s.onTeams)

	subscribe(s, ScopeGlobal, func(ctx context.Context) *stream.Stream[[]model.InviteEntry] {
		return services.WatchInvites(ctx, s.db, s.p.Email)
	}, func(ev stream.Event[[]model.InviteEntry]) {
		if ev.Err != nil {
			s.logger.LogWarnf("WatchInvites", "user=%s error=%v", s.p.UID, ev.Err)
			return
		}
		s.r.RenderInvites(ev.Value)
	})

	subscribe(s, ScopeGlobal, func(ctx context.Context) *stream.Stream[[]model.Notification] {
		return services.WatchUnreadNotifications(ctx, s.db, s.p.UID)
	}, func(ev stream.Event[[]model.Notification]) {
		if ev.Err != nil {
			s.logger.LogWarnf("WatchUnreadNotifications", "user=%s error=%v", s.p.UID, ev.Err)
			return
		}
		s.r.RenderNotifications(ev.Value)
	})
}

// onTeams handles the authoritative membership set. It renders the team
// list, hands the set to the healer, and leaves a team view whose team has
// dropped out of the set.
func (s *Session) onTeams(ev stream.Event[[]model.Team]) {
	if ev.Err != nil {
		s.logger.LogWarnf("WatchUserTeams", "user=%s error=%v", s.p.UID, ev.Err)
		return
	}
	s.live = ev.Value
	s.r.RenderTeams(s.live)
	s.heal.Submit(s.live)

	if s.team == nil {
		return
	}
	if s.inLive(s.team.ID) {
		s.teamInLive = true
		return
	}
	// a set produced before the team was joined may not have it yet
	if s.teamInLive {
		s.logger.LogDebugf("WatchUserTeams", "team=%s left the membership set", s.team.ID)
		s.showPersonal()
	}
}

func (s *Session) inLive(teamID string) bool {
	for _, t := range s.live {
		if t.ID == teamID {
			return true
		}
	}
	return false
}

func (s *Session) resetView() {
	s.registry.CancelPrefix(ScopeView)
	s.team = nil
	s.teamInLive = false
	s.details = ""
	s.rosterOpen = false
}

func (s *Session) showPersonal() {
	s.resetView()
	s.view = personalView()
	s.r.RenderView(s.view)
	s.subscribeTasks()
}

func (s *Session) showTeam(team model.Team) {
	s.resetView()
	s.team = &team
	s.teamInLive = s.inLive(team.ID)
	s.view = teamView(team, s.p.UID)
	s.r.RenderView(s.view)

	teamID := team.ID
	subscribe(s, ScopeTeam, func(ctx context.Context) *stream.Stream[services.TeamSnapshot] {
		return services.WatchTeam(ctx, s.db, teamID)
	}, s.onTeamSnapshot)
	s.subscribeTasks()
}

// onTeamSnapshot re-derives everything that depends on the team document.
// Losing access in any form falls back to the personal view without an
// error.
func (s *Session) onTeamSnapshot(ev stream.Event[services.TeamSnapshot]) {
	if ev.Err != nil {
		if backend.IsPermissionDenied(ev.Err) || backend.IsNotFound(ev.Err) {
			s.logger.LogDebugf("WatchTeam", "team=%s access revoked", s.view.TeamID)
		} else {
			s.logger.LogWarnf("WatchTeam", "team=%s error=%v", s.view.TeamID, ev.Err)
		}
		s.showPersonal()
		return
	}
	if !ev.Value.Exists {
		s.logger.LogDebugf("WatchTeam", "team=%s deleted", ev.Value.Team.ID)
		s.showPersonal()
		return
	}

	team := ev.Value.Team
	s.team = &team
	s.view = teamView(team, s.p.UID)
	s.r.RenderView(s.view)

	if s.rosterOpen {
		members, err := services.MemberProfiles(s.ctx, s.db, team)
		if err != nil {
			s.logger.LogWarnf("RefreshRoster", "team=%s error=%v", team.ID, err)
		} else {
			s.r.RenderRoster(members)
		}
	}
	if s.details != "" {
		s.refreshAssignees()
	}
}

func (s *Session) refreshAssignees() {
	members, err := services.MemberProfiles(s.ctx, s.db, *s.team)
	if err != nil {
		s.logger.LogWarnf("RefreshAssignees", "team=%s error=%v", s.team.ID, err)
		return
	}
	s.r.RenderAssignees(members)
}

func (s *Session) subscribeTasks() {
	filters := s.filters
	if s.team == nil {
		subscribe(s, ScopeTasks, func(ctx context.Context) *stream.Stream[[]model.Task] {
			return services.WatchPersonalTasks(ctx, s.db, s.p.UID, filters)
		}, s.onTasks)
		return
	}
	teamID := s.team.ID
	subscribe(s, ScopeTasks, func(ctx context.Context) *stream.Stream[[]model.Task] {
		return services.WatchTeamTasks(ctx, s.db, teamID, filters)
	}, s.onTasks)
}

func (s *Session) onTasks(ev stream.Event[[]model.Task]) {
	if ev.Err != nil {
		if s.team != nil && backend.IsPermissionDenied(ev.Err) {
			s.logger.LogDebugf("WatchTasks", "team=%s access revoked", s.team.ID)
			s.showPersonal()
			return
		}
		s.logger.LogWarnf("WatchTasks", "user=%s error=%v", s.p.UID, ev.Err)
		return
	}
	s.r.RenderTasks(ev.Value)
	if s.team != nil {
		s.watchProgress(s.team.ID, ev.Value)
	}
}

// watchProgress replaces the per-task subtask subscriptions with one for
// each task in the new list.
func (s *Session) watchProgress(teamID string, tasks []model.Task) {
	s.registry.CancelPrefix(ScopeProgress)
	for _, t := range tasks {
		taskID := t.ID
		subscribe(s, progressScope(taskID), func(ctx context.Context) *stream.Stream[[]model.SubTask] {
			return services.WatchSubTasks(ctx, s.db, teamID, taskID)
		}, func(ev stream.Event[[]model.SubTask]) {
			if ev.Err != nil {
				s.logger.LogDebugf("WatchProgress", "task=%s error=%v", taskID, ev.Err)
				return
			}
			p := model.Progress(ev.Value)
			s.r.RenderProgressLabel(taskID, p)
			s.r.RenderProgressBar(taskID, p)
		})
	}
}

func (s *Session) subscribeDetails(teamID, taskID string) {
	subscribe(s, ScopeDetails, func(ctx context.Context) *stream.Stream[[]model.SubTask] {
		return services.WatchSubTasks(ctx, s.db, teamID, taskID)
	}, func(ev stream.Event[[]model.SubTask]) {
		if ev.Err != nil {
			s.logger.LogDebugf("WatchSubTasks", "task=%s error=%v", taskID, ev.Err)
			return
		}
		s.r.RenderSubTasks(taskID, ev.Value)
	})
	subscribe(s, ScopeDetails, func(ctx context.Context) *stream.Stream[[]model.Update] {
		return services.WatchTaskUpdates(ctx, s.db, teamID, taskID)
	}, func(ev stream.Event[[]model.Update]) {
		if ev.Err != nil {
			s.logger.LogDebugf("WatchTaskUpdates", "task=%s error=%v", taskID, ev.Err)
			return
		}
		s.r.RenderUpdates(taskID, ev.Value)
	})
}

func (s *Session) closeDetails() {
	s.registry.Cancel(ScopeDetails)
	s.details = ""
}
