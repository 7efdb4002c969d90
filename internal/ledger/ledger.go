// Package ledger orchestrates expense and settlement mutations and the
// balance queries built on top of them.
//
// The Coordinator owns every multi-record write: authorization and
// membership checks run first, then the records and their activity-log
// entry are written in one transaction, and only after commit is the
// event published. The Aggregator is read only.
package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/mmynk/splitledger/internal/errs"
	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/notify"
	"github.com/mmynk/splitledger/internal/storage"
)

// Membership answers group-membership questions with current data.
type Membership interface {
	IsActiveMember(ctx context.Context, userID, groupID string) (bool, error)
	ListActiveMembers(ctx context.Context, groupID string) ([]string, error)

	// MemberRole returns "" when userID is not an active member.
	MemberRole(ctx context.Context, userID, groupID string) (models.GroupRole, error)
}

// Coordinator wraps every ledger mutation in one atomic unit.
type Coordinator struct {
	store     storage.Store
	members   Membership
	publisher notify.Publisher
	metrics   *metrics.Ledger
	logger    *slog.Logger
	locks     *pairLocks
	now       func() time.Time
}

// Option configures a Coordinator or an Aggregator.
type Option func(*options)

type options struct {
	publisher notify.Publisher
	metrics   *metrics.Ledger
	logger    *slog.Logger
	now       func() time.Time
}

// WithPublisher sets where committed events are sent. Defaults to notify.Nop.
func WithPublisher(p notify.Publisher) Option {
	return func(o *options) { o.publisher = p }
}

// WithMetrics sets the collectors mutations are recorded in.
func WithMetrics(m *metrics.Ledger) Option {
	return func(o *options) { o.metrics = m }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{
		publisher: notify.Nop{},
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewCoordinator creates a Coordinator over store and members.
func NewCoordinator(store storage.Store, members Membership, opts ...Option) *Coordinator {
	o := buildOptions(opts)
	return &Coordinator{
		store:     store,
		members:   members,
		publisher: o.publisher,
		metrics:   o.metrics,
		logger:    o.logger,
		locks:     newPairLocks(),
		now:       o.now,
	}
}

func (c *Coordinator) timestamp() time.Time {
	return c.now().UTC().Truncate(time.Second)
}

// requireMember fails with errs.Authorization unless userID is an active member.
func requireMember(ctx context.Context, members Membership, userID, groupID string) error {
	ok, err := members.IsActiveMember(ctx, userID, groupID)
	if err != nil {
		return err
	}
	if !ok {
		return errs.Newf(errs.Authorization, "user %s is not an active member of group %s", userID, groupID)
	}
	return nil
}

// canManage reports whether actor may mutate a record paid by payerID in scope.
func (c *Coordinator) canManage(ctx context.Context, actor models.Actor, payerID string, scope models.Scope) (bool, error) {
	if actor.UserID == payerID {
		return true, nil
	}
	groupID, ok := models.GroupIDOf(scope)
	if !ok {
		return false, nil
	}
	role, err := c.members.MemberRole(ctx, actor.UserID, groupID)
	if err != nil {
		return false, err
	}
	return role.CanManage(), nil
}

// commit publishes the event for a committed activity. Delivery failures are
// logged: the activity row is the durable record.
func (c *Coordinator) commit(ctx context.Context, activity *models.Activity, recipients []string) {
	groupID, _ := models.GroupIDOf(activity.Scope)
	subject := activity.ExpenseID
	if subject == "" {
		subject = activity.SettlementID
	}
	event := notify.Event{
		Type:       string(activity.Type),
		ActorID:    activity.ActorID,
		GroupID:    groupID,
		Recipients: without(recipients, activity.ActorID),
		Subject:    subject,
		Message:    activity.Action,
		At:         activity.CreatedAt,
	}
	if err := c.publisher.Publish(ctx, event); err != nil {
		c.logger.WarnContext(ctx, "Failed to publish ledger event",
			"type", event.Type, "subject", subject, "error", err)
	}
}

// without returns the unique values of ids other than skip, in order.
func without(ids []string, skip string) []string {
	seen := map[string]bool{skip: true}
	var out []string
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func displayName(actor models.Actor) string {
	if actor.Name != "" {
		return actor.Name
	}
	return actor.UserID
}
