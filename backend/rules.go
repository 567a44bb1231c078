package backend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"teamdash/model"
	"teamdash/stream"
)

// Principal is the signed-in user on whose behalf a request runs.
type Principal struct {
	UID      string
	Email    string
	Name     string
	AuthTime time.Time
}

// MailboxID is the invites document key for the principal.
func (p Principal) MailboxID() string {
	return strings.ToLower(strings.TrimSpace(p.Email))
}

// rules evaluates the dashboard's access rules for one principal on top of an
// unrestricted backend. Server credentials bypass the database's own rules, so
// every request made on a user's behalf goes through here.
type rules struct {
	base Backend
	p    Principal
}

// WithRules returns a Backend that only allows what p may do.
func WithRules(b Backend, p Principal) Backend {
	return &rules{base: b, p: p}
}

type access int

const (
	accessRead access = iota
	accessCreate
	accessWrite
	accessDelete
)

func denied(path string) error {
	return fmt.Errorf("%w: %s", ErrPermissionDenied, path)
}

func (r *rules) team(ctx context.Context, id string) (model.Team, error) {
	doc, err := r.base.Get(ctx, Join("teams", id))
	if err != nil {
		return model.Team{}, err
	}
	var t model.Team
	if err := doc.DataTo(&t); err != nil {
		return model.Team{}, err
	}
	t.ID = id
	return t, nil
}

func (r *rules) requireMember(ctx context.Context, teamID, path string) error {
	t, err := r.team(ctx, teamID)
	if err != nil {
		if IsNotFound(err) {
			return denied(path)
		}
		return err
	}
	if !t.IsMember(r.p.UID) {
		return denied(path)
	}
	return nil
}

// hasInvite reports whether the principal's mailbox holds a pending invite
// for teamID.
func (r *rules) hasInvite(ctx context.Context, teamID string) bool {
	doc, err := r.base.Get(ctx, Join("invites", r.p.MailboxID()))
	if err != nil {
		return false
	}
	var mb model.Mailbox
	if err := doc.DataTo(&mb); err != nil {
		return false
	}
	_, pending := mb.Find(teamID)
	return pending
}

// joiningByInvite reports whether updates only add the principal to members
// of a team it has been invited to.
func (r *rules) joiningByInvite(ctx context.Context, teamID string, updates []Update) bool {
	if len(updates) != 1 || updates[0].Path != "members" {
		return false
	}
	t, ok := updates[0].Value.(arrayTransform)
	if !ok || !t.union || len(t.values) != 1 || t.values[0] != r.p.UID {
		return false
	}
	return r.hasInvite(ctx, teamID)
}

// canReadTeam allows members, and invitees deciding whether to join.
func (r *rules) canReadTeam(ctx context.Context, doc Document) error {
	var t model.Team
	if err := doc.DataTo(&t); err != nil {
		return err
	}
	if t.IsMember(r.p.UID) || r.hasInvite(ctx, doc.ID()) {
		return nil
	}
	return denied(doc.Path())
}

// check authorizes an operation on a document path. Team documents are
// handled by the callers because their rule depends on the stored team.
func (r *rules) check(ctx context.Context, path string, a access) error {
	segs := split(path)
	switch segs[0] {
	case "users":
		if len(segs) == 2 && a == accessRead {
			return nil
		}
		if len(segs) >= 2 && segs[1] == r.p.UID {
			return nil
		}
	case "teams":
		if len(segs) >= 3 {
			return r.requireMember(ctx, segs[1], path)
		}
	case "invites":
		if len(segs) == 2 && (a != accessDelete || segs[1] == r.p.MailboxID()) {
			return nil
		}
	case "notifications":
		if len(segs) >= 2 && segs[1] == r.p.UID {
			return nil
		}
		if len(segs) >= 3 && a == accessCreate {
			return nil
		}
	}
	return denied(path)
}

func isTeamDoc(path string) (string, bool) {
	segs := split(path)
	if len(segs) == 2 && segs[0] == "teams" {
		return segs[1], true
	}
	return "", false
}

func (r *rules) Get(ctx context.Context, path string) (Document, error) {
	if _, ok := isTeamDoc(path); ok {
		doc, err := r.base.Get(ctx, path)
		if err != nil {
			return doc, err
		}
		if err := r.canReadTeam(ctx, doc); err != nil {
			return nil, err
		}
		return doc, nil
	}
	if err := r.check(ctx, path, accessRead); err != nil {
		return nil, err
	}
	return r.base.Get(ctx, path)
}

func (r *rules) Create(ctx context.Context, collection string, data interface{}) (string, error) {
	if collection != "teams" {
		if err := r.check(ctx, Join(collection, "_"), accessCreate); err != nil {
			return "", err
		}
	}
	return r.base.Create(ctx, collection, data)
}

func (r *rules) authorizeTeamWrite(ctx context.Context, id string, updates []Update) error {
	t, err := r.team(ctx, id)
	if err != nil {
		return err
	}
	if t.IsMember(r.p.UID) || r.joiningByInvite(ctx, id, updates) {
		return nil
	}
	return denied(Join("teams", id))
}

func (r *rules) Set(ctx context.Context, path string, data interface{}) error {
	if id, ok := isTeamDoc(path); ok {
		if err := r.authorizeTeamWrite(ctx, id, nil); err != nil && !IsNotFound(err) {
			return err
		}
		return r.base.Set(ctx, path, data)
	}
	if err := r.check(ctx, path, accessWrite); err != nil {
		return err
	}
	return r.base.Set(ctx, path, data)
}

func (r *rules) Merge(ctx context.Context, path string, updates []Update) error {
	if id, ok := isTeamDoc(path); ok {
		if err := r.authorizeTeamWrite(ctx, id, updates); err != nil {
			return err
		}
		return r.base.Merge(ctx, path, updates)
	}
	if err := r.check(ctx, path, accessWrite); err != nil {
		return err
	}
	return r.base.Merge(ctx, path, updates)
}

func (r *rules) Update(ctx context.Context, path string, updates []Update) error {
	if id, ok := isTeamDoc(path); ok {
		if err := r.authorizeTeamWrite(ctx, id, updates); err != nil {
			return err
		}
		return r.base.Update(ctx, path, updates)
	}
	if err := r.check(ctx, path, accessWrite); err != nil {
		return err
	}
	return r.base.Update(ctx, path, updates)
}

func (r *rules) authorizeDelete(ctx context.Context, path string) error {
	id, ok := isTeamDoc(path)
	if !ok {
		return r.check(ctx, path, accessDelete)
	}
	t, err := r.team(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil
		}
		return err
	}
	if !t.IsAdmin(r.p.UID) {
		return denied(path)
	}
	return nil
}

func (r *rules) Delete(ctx context.Context, path string) error {
	if err := r.authorizeDelete(ctx, path); err != nil {
		return err
	}
	return r.base.Delete(ctx, path)
}

func (r *rules) DeleteAll(ctx context.Context, paths []string) error {
	for _, p := range paths {
		if err := r.authorizeDelete(ctx, p); err != nil {
			return err
		}
	}
	return r.base.DeleteAll(ctx, paths)
}

func (r *rules) checkQuery(ctx context.Context, q Query) error {
	if q.Collection == "teams" {
		for _, f := range q.Filters {
			if f.Field == "members" && f.Op == OpArrayContains && f.Value == r.p.UID {
				return nil
			}
		}
		return denied(q.Collection)
	}
	if q.Collection == "users" {
		return nil
	}
	return r.check(ctx, Join(q.Collection, "_"), accessRead)
}

func (r *rules) Query(ctx context.Context, q Query) ([]Document, error) {
	if err := r.checkQuery(ctx, q); err != nil {
		return nil, err
	}
	return r.base.Query(ctx, q)
}

func (r *rules) WatchDocument(ctx context.Context, path string) *stream.Stream[Document] {
	if _, ok := isTeamDoc(path); ok {
		return r.watchTeamDocument(ctx, path)
	}
	if err := r.check(ctx, path, accessRead); err != nil {
		return stream.Fail[Document](err)
	}
	if teamID, ok := teamScope(path); ok {
		return guardByMembership(ctx, r, teamID, path, r.base.WatchDocument(ctx, path))
	}
	return r.base.WatchDocument(ctx, path)
}

func (r *rules) WatchQuery(ctx context.Context, q Query) *stream.Stream[[]Document] {
	if err := r.checkQuery(ctx, q); err != nil {
		return stream.Fail[[]Document](err)
	}
	if teamID, ok := teamScope(q.Collection); ok {
		return guardByMembership(ctx, r, teamID, q.Collection, r.base.WatchQuery(ctx, q))
	}
	return r.base.WatchQuery(ctx, q)
}

// watchTeamDocument passes team snapshots through while the principal is a
// member. A deleted team is delivered as a non-existent document; losing
// membership ends the stream with ErrPermissionDenied.
func (r *rules) watchTeamDocument(ctx context.Context, path string) *stream.Stream[Document] {
	inner := r.base.WatchDocument(ctx, path)
	return stream.New(ctx, func(ctx context.Context, emit func(Document) bool) error {
		defer inner.Cancel()
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, ok := <-inner.Events():
				if !ok {
					return nil
				}
				if ev.Err != nil {
					return ev.Err
				}
				if ev.Value.Exists() {
					var t model.Team
					if err := ev.Value.DataTo(&t); err != nil {
						return err
					}
					if !t.IsMember(r.p.UID) {
						return denied(path)
					}
				}
				if !emit(ev.Value) {
					return nil
				}
			}
		}
	})
}

func teamScope(path string) (string, bool) {
	segs := split(path)
	if len(segs) >= 3 && segs[0] == "teams" {
		return segs[1], true
	}
	return "", false
}

// guardByMembership forwards inner until the principal stops being a member of
// teamID, then fails with ErrPermissionDenied.
func guardByMembership[T any](ctx context.Context, r *rules, teamID, path string, inner *stream.Stream[T]) *stream.Stream[T] {
	team := r.base.WatchDocument(ctx, Join("teams", teamID))
	return stream.New(ctx, func(ctx context.Context, emit func(T) bool) error {
		defer inner.Cancel()
		defer team.Cancel()

		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, ok := <-team.Events():
				if !ok {
					return nil
				}
				if ev.Err != nil {
					return ev.Err
				}
				if !ev.Value.Exists() {
					return denied(path)
				}
				var t model.Team
				if err := ev.Value.DataTo(&t); err != nil {
					return err
				}
				if !t.IsMember(r.p.UID) {
					return denied(path)
				}
			case ev, ok := <-inner.Events():
				if !ok {
					return nil
				}
				if ev.Err != nil {
					return ev.Err
				}
				// the commit behind this snapshot may also have removed the
				// principal, and its team event can still be queued
				if err := r.requireMember(ctx, teamID, path); err != nil {
					return err
				}
				if !emit(ev.Value) {
					return nil
				}
			}
		}
	})
}

func (r *rules) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return r.base.RunTransaction(ctx, func(ctx context.Context, tx Tx) error {
		return fn(ctx, &rulesTx{ctx: ctx, r: r, tx: tx})
	})
}

type rulesTx struct {
	ctx context.Context
	r   *rules
	tx  Tx
}

func (t *rulesTx) Get(path string) (Document, error) {
	if _, ok := isTeamDoc(path); ok {
		doc, err := t.tx.Get(path)
		if err != nil {
			return doc, err
		}
		if err := t.r.canReadTeam(t.ctx, doc); err != nil {
			return nil, err
		}
		return doc, nil
	}
	if err := t.r.check(t.ctx, path, accessRead); err != nil {
		return nil, err
	}
	return t.tx.Get(path)
}

func (t *rulesTx) Set(path string, data interface{}) error {
	if id, ok := isTeamDoc(path); ok {
		if err := t.r.authorizeTeamWrite(t.ctx, id, nil); err != nil && !IsNotFound(err) {
			return err
		}
		return t.tx.Set(path, data)
	}
	if err := t.r.check(t.ctx, path, accessWrite); err != nil {
		return err
	}
	return t.tx.Set(path, data)
}

func (t *rulesTx) Update(path string, updates []Update) error {
	if id, ok := isTeamDoc(path); ok {
		if err := t.r.authorizeTeamWrite(t.ctx, id, updates); err != nil {
			return err
		}
		return t.tx.Update(path, updates)
	}
	if err := t.r.check(t.ctx, path, accessWrite); err != nil {
		return err
	}
	return t.tx.Update(path, updates)
}

func (t *rulesTx) Delete(path string) error {
	if err := t.r.authorizeDelete(t.ctx, path); err != nil {
		return err
	}
	return t.tx.Delete(path)
}
