package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitledger/internal/calculator"
	"github.com/mmynk/splitledger/internal/errs"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/notify"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/internal/storage/sqlite"
)

var (
	alice = models.Actor{UserID: "alice", Name: "Alice"}
	bob   = models.Actor{UserID: "bob", Name: "Bob"}
	carol = models.Actor{UserID: "carol", Name: "Carol"}
	dave  = models.Actor{UserID: "dave", Name: "Dave"}
)

type recorder struct {
	mu     sync.Mutex
	events []notify.Event
}

func (r *recorder) Publish(_ context.Context, e notify.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	store   *sqlite.SQLiteStore
	coord   *Coordinator
	agg     *Aggregator
	events  *recorder
	groupID string
}

// newFixture creates a store with alice (owner), bob and carol in one group.
// dave exists but belongs to no group.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	for _, a := range []models.Actor{alice, bob, carol, dave} {
		require.NoError(t, store.CreateUser(ctx, &models.User{ID: a.UserID, Name: a.Name, Email: a.UserID + "@example.com"}))
	}
	group := &models.Group{Name: "Trip", OwnerID: alice.UserID}
	require.NoError(t, store.CreateGroup(ctx, group))
	require.NoError(t, store.AddGroupMember(ctx, group.ID, bob.UserID, models.RoleMember))
	require.NoError(t, store.AddGroupMember(ctx, group.ID, carol.UserID, models.RoleMember))

	events := &recorder{}
	clock := func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return &fixture{
		store:   store,
		coord:   NewCoordinator(store, store, WithPublisher(events), WithClock(clock)),
		agg:     NewAggregator(store, store, decimal.Zero),
		events:  events,
		groupID: group.ID,
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

func equalSplit(ids ...string) []calculator.Participant {
	out := make([]calculator.Participant, len(ids))
	for i, id := range ids {
		out[i] = calculator.Participant{UserID: id}
	}
	return out
}

// dinner records a 90 EUR group dinner paid by alice, split three ways.
func (f *fixture) dinner(t *testing.T) *models.Expense {
	t.Helper()
	e, err := f.coord.CreateExpense(context.Background(), alice, ExpenseInput{
		GroupID:      f.groupID,
		Description:  "Dinner",
		Amount:       dec("90"),
		Currency:     "eur",
		SplitType:    models.SplitEqual,
		Participants: equalSplit("alice", "bob", "carol"),
	})
	require.NoError(t, err)
	return e
}

func TestCreateExpense(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e := f.dinner(t)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, "EUR", e.Currency)
	assert.Equal(t, alice.UserID, e.PaidByID)
	require.Len(t, e.Splits, 3)
	for _, s := range e.Splits {
		assertAmount(t, "30", s.Amount)
	}

	stored, err := f.coord.GetExpense(ctx, bob, e.ID)
	require.NoError(t, err)
	assert.Equal(t, e.Description, stored.Description)
	assert.Equal(t, []string{"alice", "bob", "carol"}, []string{
		stored.Splits[0].UserID, stored.Splits[1].UserID, stored.Splits[2].UserID,
	})

	activity, err := f.coord.ListActivity(ctx, alice, f.groupID, 0)
	require.NoError(t, err)
	require.Len(t, activity, 1)
	assert.Equal(t, models.ActivityExpenseCreated, activity[0].Type)
	assert.Equal(t, e.ID, activity[0].ExpenseID)

	require.Len(t, f.events.events, 1)
	assert.Equal(t, []string{"bob", "carol"}, f.events.events[0].Recipients)

	summary, err := f.agg.ComputeBalances(ctx, alice.UserID, "")
	require.NoError(t, err)
	assertAmount(t, "60", summary.TotalOwed)
	assertAmount(t, "60", summary.NetBalance)
	require.Len(t, summary.Relationships, 2)
	assertAmount(t, "30", summary.Relationships[0].NetBalance)
}

func TestCreateExpense_Rejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	base := func() ExpenseInput {
		return ExpenseInput{
			GroupID:      f.groupID,
			Description:  "Taxi",
			Amount:       dec("30"),
			Currency:     "EUR",
			SplitType:    models.SplitEqual,
			Participants: equalSplit("alice", "bob"),
		}
	}

	tests := []struct {
		name   string
		actor  models.Actor
		mutate func(in *ExpenseInput)
		want   errs.Kind
	}{
		{"unknown currency", alice, func(in *ExpenseInput) { in.Currency = "XYZ1" }, errs.Validation},
		{"missing description", alice, func(in *ExpenseInput) { in.Description = "  " }, errs.Validation},
		{"participant outside group", alice, func(in *ExpenseInput) { in.Participants = equalSplit("alice", "dave") }, errs.Validation},
		{"member records for someone else", bob, func(in *ExpenseInput) { in.PaidByID = "carol" }, errs.Authorization},
		{"non-member records in group", dave, func(in *ExpenseInput) { in.Participants = equalSplit("dave", "bob") }, errs.Authorization},
		{"exact amounts do not add up", alice, func(in *ExpenseInput) {
			in.SplitType = models.SplitExact
			in.Participants = []calculator.Participant{{UserID: "alice", Amount: dec("10")}, {UserID: "bob", Amount: dec("10")}}
		}, errs.Validation},
		{"missing tag", alice, func(in *ExpenseInput) { in.TagIDs = []string{"nope"} }, errs.NotFound},
		{"duplicate tag", alice, func(in *ExpenseInput) { in.TagIDs = []string{"t", "t"} }, errs.Conflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base()
			tt.mutate(&in)
			_, err := f.coord.CreateExpense(ctx, tt.actor, in)
			require.Error(t, err)
			assert.Equal(t, tt.want, errs.KindOf(err), err.Error())
		})
	}

	expenses, err := f.store.ListGroupExpenses(ctx, f.groupID)
	require.NoError(t, err)
	assert.Empty(t, expenses)
	assert.Empty(t, f.events.types())
}

func TestCreateExpense_AdminRecordsForMember(t *testing.T) {
	f := newFixture(t)

	e, err := f.coord.CreateExpense(context.Background(), alice, ExpenseInput{
		GroupID:      f.groupID,
		PaidByID:     bob.UserID,
		Description:  "Groceries",
		Amount:       dec("20"),
		Currency:     "EUR",
		SplitType:    models.SplitEqual,
		Participants: equalSplit("bob", "carol"),
	})
	require.NoError(t, err)
	assert.Equal(t, bob.UserID, e.PaidByID)
}

func TestCreateExpense_WithTags(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tag := &models.Tag{Name: "food"}
	require.NoError(t, f.store.CreateTag(ctx, tag))

	e, err := f.coord.CreateExpense(ctx, bob, ExpenseInput{
		Description:  "Lunch",
		Amount:       dec("12.50"),
		Currency:     "USD",
		SplitType:    models.SplitEqual,
		Participants: equalSplit("bob", "dave"),
		TagIDs:       []string{tag.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, models.Personal{}, e.Scope)

	stored, err := f.store.GetExpense(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{tag.ID}, stored.TagIDs)
}

type failingStore struct {
	storage.Store
}

func (s failingStore) WithTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	return s.Store.WithTx(ctx, func(tx storage.Tx) error {
		return fn(failingTx{Tx: tx})
	})
}

type failingTx struct {
	storage.Tx
}

func (failingTx) AppendActivity(context.Context, *models.Activity) error {
	return errors.New("disk full")
}

func TestMutations_AreAtomic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.dinner(t)

	events := &recorder{}
	broken := NewCoordinator(failingStore{Store: f.store}, f.store, WithPublisher(events))

	_, err := broken.CreateExpense(ctx, alice, ExpenseInput{
		GroupID:      f.groupID,
		Description:  "Museum",
		Amount:       dec("45"),
		Currency:     "EUR",
		SplitType:    models.SplitEqual,
		Participants: equalSplit("alice", "bob", "carol"),
	})
	require.Error(t, err)

	expenses, err := f.store.ListGroupExpenses(ctx, f.groupID)
	require.NoError(t, err)
	require.Len(t, expenses, 1, "expense without activity must not be kept")

	_, err = broken.CreateSettlement(ctx, bob, SettlementInput{PaidToID: alice.UserID, GroupID: f.groupID, Amount: dec("30")})
	require.Error(t, err)
	page, err := f.store.ListSettlements(ctx, storage.SettlementFilter{UserID: bob.UserID})
	require.NoError(t, err)
	assert.Zero(t, page.Total)

	require.Error(t, broken.DeleteExpense(ctx, alice, e.ID))
	_, err = f.store.GetExpense(ctx, e.ID)
	require.NoError(t, err)

	assert.Empty(t, events.types())
}

func TestUpdateExpense(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.dinner(t)

	in := ExpenseInput{
		GroupID:     f.groupID,
		Description: "Dinner and drinks",
		Amount:      dec("100"),
		Currency:    "EUR",
		SplitType:   models.SplitPercentage,
		Participants: []calculator.Participant{
			{UserID: "alice", Percentage: dec("50")},
			{UserID: "bob", Percentage: dec("25")},
			{UserID: "carol", Percentage: dec("25")},
		},
	}

	_, err := f.coord.UpdateExpense(ctx, bob, e.ID, in)
	assert.True(t, errors.Is(err, errs.ErrAuthorization))

	updated, err := f.coord.UpdateExpense(ctx, alice, e.ID, in)
	require.NoError(t, err)
	assert.Equal(t, e.ID, updated.ID)

	stored, err := f.store.GetExpense(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dinner and drinks", stored.Description)
	require.Len(t, stored.Splits, 3)
	assertAmount(t, "25", stored.Splits[1].Amount)
	assertAmount(t, "25", stored.Splits[1].Percentage.Decimal)

	_, err = f.coord.UpdateExpense(ctx, alice, "missing", in)
	assert.Equal(t, errs.NotFound, errs.KindOf(err))
}

func TestUpdateExpense_SettledIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.dinner(t)

	s, err := f.coord.CreateSettlement(ctx, bob, SettlementInput{PaidToID: alice.UserID, GroupID: f.groupID, Amount: dec("30")})
	require.NoError(t, err)
	_, err = f.coord.CompleteSettlement(ctx, alice, s.ID)
	require.NoError(t, err)

	_, err = f.coord.UpdateExpense(ctx, alice, e.ID, ExpenseInput{
		GroupID:      f.groupID,
		Description:  "Dinner",
		Amount:       dec("120"),
		Currency:     "EUR",
		SplitType:    models.SplitEqual,
		Participants: equalSplit("alice", "bob", "carol"),
	})
	assert.Equal(t, errs.Conflict, errs.KindOf(err))
}

func TestDeleteExpense(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.dinner(t)

	err := f.coord.DeleteExpense(ctx, bob, e.ID)
	assert.Equal(t, errs.Authorization, errs.KindOf(err))

	require.NoError(t, f.coord.DeleteExpense(ctx, alice, e.ID))

	_, err = f.coord.GetExpense(ctx, alice, e.ID)
	assert.Equal(t, errs.NotFound, errs.KindOf(err))

	activity, err := f.coord.ListActivity(ctx, alice, f.groupID, 10)
	require.NoError(t, err)
	require.Len(t, activity, 2)
	assert.Equal(t, models.ActivityExpenseDeleted, activity[0].Type)
	assert.Equal(t, e.ID, activity[0].ExpenseID)

	assert.Equal(t, errs.NotFound, errs.KindOf(f.coord.DeleteExpense(ctx, alice, e.ID)))
}

func TestGetExpense_Visibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e, err := f.coord.CreateExpense(ctx, bob, ExpenseInput{
		Description:  "Cinema",
		Amount:       dec("20"),
		Currency:     "EUR",
		SplitType:    models.SplitEqual,
		Participants: equalSplit("bob", "dave"),
	})
	require.NoError(t, err)

	_, err = f.coord.GetExpense(ctx, dave, e.ID)
	require.NoError(t, err)
	_, err = f.coord.GetExpense(ctx, carol, e.ID)
	assert.Equal(t, errs.Authorization, errs.KindOf(err))
}

func TestSettlementLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.dinner(t)

	_, err := f.coord.CreateSettlement(ctx, bob, SettlementInput{PaidToID: alice.UserID, GroupID: f.groupID, Amount: dec("40")})
	assert.Equal(t, errs.Conflict, errs.KindOf(err), "more than owed")

	_, err = f.coord.CreateSettlement(ctx, alice, SettlementInput{PaidToID: bob.UserID, GroupID: f.groupID, Amount: dec("1")})
	assert.Equal(t, errs.Conflict, errs.KindOf(err), "nothing owed in that direction")

	_, err = f.coord.CreateSettlement(ctx, bob, SettlementInput{PaidToID: bob.UserID, Amount: dec("1")})
	assert.Equal(t, errs.Validation, errs.KindOf(err))

	s, err := f.coord.CreateSettlement(ctx, bob, SettlementInput{PaidToID: alice.UserID, GroupID: f.groupID, Amount: dec("30")})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, s.Status)
	assert.Equal(t, models.MethodCash, s.Method)

	_, err = f.coord.CreateSettlement(ctx, bob, SettlementInput{PaidToID: alice.UserID, GroupID: f.groupID, Amount: dec("1")})
	assert.Equal(t, errs.Conflict, errs.KindOf(err), "pending settlement already covers the debt")

	_, err = f.coord.CompleteSettlement(ctx, carol, s.ID)
	assert.Equal(t, errs.Authorization, errs.KindOf(err))

	done, err := f.coord.CompleteSettlement(ctx, alice, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, done.Status)
	require.NotNil(t, done.SettledAt)

	summary, err := f.agg.ComputeBalances(ctx, bob.UserID, f.groupID)
	require.NoError(t, err)
	assert.True(t, summary.NetBalance.IsZero())
	require.Len(t, summary.RecentSettlements, 1)
	assert.Equal(t, s.ID, summary.RecentSettlements[0].ID)

	_, err = f.coord.CompleteSettlement(ctx, alice, s.ID)
	assert.Equal(t, errs.Conflict, errs.KindOf(err))
	_, err = f.coord.CancelSettlement(ctx, bob, s.ID)
	assert.Equal(t, errs.Conflict, errs.KindOf(err))

	assert.Equal(t, []string{
		string(models.ActivityExpenseCreated),
		string(models.ActivitySettlementMade),
		string(models.ActivitySettlementCompleted),
	}, f.events.types())
}

func TestCancelSettlement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.dinner(t)

	s, err := f.coord.CreateSettlement(ctx, carol, SettlementInput{
		PaidToID: alice.UserID,
		GroupID:  f.groupID,
		Amount:   dec("10"),
		Method:   models.MethodUPI,
	})
	require.NoError(t, err)

	cancelled, err := f.coord.CancelSettlement(ctx, alice, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	assert.Nil(t, cancelled.SettledAt)

	summary, err := f.agg.ComputeBalances(ctx, carol.UserID, "")
	require.NoError(t, err)
	assertAmount(t, "-30", summary.NetBalance)

	_, err = f.coord.CompleteSettlement(ctx, alice, s.ID)
	assert.Equal(t, errs.Conflict, errs.KindOf(err), "cancelled is terminal")
	_, err = f.coord.CancelSettlement(ctx, alice, s.ID)
	assert.Equal(t, errs.Conflict, errs.KindOf(err), "cancelled is terminal")

	// A cancelled settlement no longer reserves the debt.
	_, err = f.coord.CreateSettlement(ctx, carol, SettlementInput{PaidToID: alice.UserID, GroupID: f.groupID, Amount: dec("30")})
	require.NoError(t, err)
}

func TestCompleteSettlement_NetsBothDirections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.dinner(t)

	_, err := f.coord.CreateExpense(ctx, bob, ExpenseInput{
		GroupID:      f.groupID,
		Description:  "Coffee",
		Amount:       dec("30"),
		Currency:     "EUR",
		SplitType:    models.SplitEqual,
		Participants: equalSplit("alice", "bob"),
	})
	require.NoError(t, err)

	_, err = f.coord.CreateSettlement(ctx, bob, SettlementInput{PaidToID: alice.UserID, GroupID: f.groupID, Amount: dec("15.01")})
	assert.Equal(t, errs.Conflict, errs.KindOf(err))

	s, err := f.coord.CreateSettlement(ctx, bob, SettlementInput{PaidToID: alice.UserID, GroupID: f.groupID, Amount: dec("15")})
	require.NoError(t, err)
	_, err = f.coord.CompleteSettlement(ctx, bob, s.ID)
	require.NoError(t, err)

	expenses, err := f.store.ListPairExpenses(ctx, alice.UserID, bob.UserID, f.groupID)
	require.NoError(t, err)
	for _, e := range expenses {
		for _, split := range e.Splits {
			if split.UserID == alice.UserID || split.UserID == bob.UserID {
				if split.UserID != e.PaidByID {
					assert.True(t, split.IsSettled, "split of %s on %s", split.UserID, e.Description)
				}
			}
		}
	}

	summary, err := f.agg.ComputeBalances(ctx, bob.UserID, "")
	require.NoError(t, err)
	assert.True(t, summary.NetBalance.IsZero())
}

func TestSplitPayments(t *testing.T) {
	expense := func(id, paidBy, debtor, amount string) *models.Expense {
		return &models.Expense{
			ID:       id,
			PaidByID: paidBy,
			Splits:   []models.Split{{ID: id + "-" + debtor, UserID: debtor, Amount: dec(amount)}},
		}
	}
	netPaid := func(payments []storage.SplitPayment, forward map[string]bool) decimal.Decimal {
		total := decimal.Zero
		for _, p := range payments {
			if forward[p.SplitID] {
				total = total.Add(p.Amount)
			} else {
				total = total.Sub(p.Amount)
			}
		}
		return total
	}
	s := &models.Settlement{ID: "s1", PaidByID: "bob", PaidToID: "alice", Amount: dec("10")}

	// bob owes 100 and 5, alice owes 20: the reverse split clears and 30 goes
	// to bob's splits oldest first.
	payments, err := splitPayments(s, []*models.Expense{
		expense("e1", "alice", "bob", "100"),
		expense("e2", "alice", "bob", "5"),
		expense("e3", "bob", "alice", "20"),
	})
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, "e3-alice", payments[0].SplitID)
	assertAmount(t, "20", payments[0].Amount)
	assert.Equal(t, "e1-bob", payments[1].SplitID)
	assertAmount(t, "30", payments[1].Amount)
	assertAmount(t, "10", netPaid(payments, map[string]bool{"e1-bob": true, "e2-bob": true}))

	// A partly paid split only takes what remains on it.
	paid := expense("e1", "alice", "bob", "30")
	paid.Splits[0].SettledAmount = dec("25")
	s.Amount = dec("8")
	payments, err = splitPayments(s, []*models.Expense{paid, expense("e2", "alice", "bob", "10")})
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assertAmount(t, "5", payments[0].Amount)
	assertAmount(t, "3", payments[1].Amount)

	// An amount larger than the remaining debt cannot be applied.
	s.Amount = dec("50")
	_, err = splitPayments(s, []*models.Expense{expense("e1", "alice", "bob", "30")})
	assert.Equal(t, errs.InternalConsistency, errs.KindOf(err))
}

func TestCompleteSettlement_PartialPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.dinner(t)

	first, err := f.coord.CreateSettlement(ctx, bob, SettlementInput{PaidToID: alice.UserID, GroupID: f.groupID, Amount: dec("20")})
	require.NoError(t, err)
	_, err = f.coord.CompleteSettlement(ctx, alice, first.ID)
	require.NoError(t, err)

	summary, err := f.agg.ComputeBalances(ctx, bob.UserID, f.groupID)
	require.NoError(t, err)
	assertAmount(t, "-10", summary.NetBalance)

	stored, err := f.store.GetExpense(ctx, e.ID)
	require.NoError(t, err)
	split, ok := stored.SplitFor(bob.UserID)
	require.True(t, ok)
	assertAmount(t, "20", split.SettledAmount)
	assert.False(t, split.IsSettled)

	_, err = f.coord.CreateSettlement(ctx, bob, SettlementInput{PaidToID: alice.UserID, GroupID: f.groupID, Amount: dec("30")})
	assert.Equal(t, errs.Conflict, errs.KindOf(err), "only 10 is still owed")

	rest, err := f.coord.CreateSettlement(ctx, bob, SettlementInput{PaidToID: alice.UserID, GroupID: f.groupID, Amount: dec("10")})
	require.NoError(t, err)
	_, err = f.coord.CompleteSettlement(ctx, alice, rest.ID)
	require.NoError(t, err)

	stored, err = f.store.GetExpense(ctx, e.ID)
	require.NoError(t, err)
	split, ok = stored.SplitFor(bob.UserID)
	require.True(t, ok)
	assert.True(t, split.IsSettled)
	require.NotNil(t, split.SettledAt)

	summary, err = f.agg.ComputeBalances(ctx, bob.UserID, "")
	require.NoError(t, err)
	assert.True(t, summary.NetBalance.IsZero())
}

func TestCreateSettlement_ReservationsSpanScopes(t *testing.T) {
	tests := []struct {
		name          string
		first, second string
	}{
		{"all scope then group", "", "group"},
		{"group then all scope", "group", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			f.dinner(t)

			scope := func(s string) string {
				if s == "group" {
					return f.groupID
				}
				return ""
			}
			_, err := f.coord.CreateSettlement(ctx, bob, SettlementInput{PaidToID: alice.UserID, GroupID: scope(tt.first), Amount: dec("30")})
			require.NoError(t, err)

			_, err = f.coord.CreateSettlement(ctx, bob, SettlementInput{PaidToID: alice.UserID, GroupID: scope(tt.second), Amount: dec("30")})
			assert.Equal(t, errs.Conflict, errs.KindOf(err))
		})
	}
}

func TestCreateSettlement_ConcurrentRequestsCannotOverSettle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.dinner(t)

	const attempts = 5
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.coord.CreateSettlement(ctx, bob, SettlementInput{PaidToID: alice.UserID, GroupID: f.groupID, Amount: dec("30")})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if errs.KindOf(err) == errs.Conflict {
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, conflicts)
}

func TestListSettlements(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for range 3 {
		f.dinner(t)
	}
	var ids []string
	for _, amount := range []string{"10", "20", "30"} {
		s, err := f.coord.CreateSettlement(ctx, bob, SettlementInput{PaidToID: alice.UserID, GroupID: f.groupID, Amount: dec(amount)})
		require.NoError(t, err)
		ids = append(ids, s.ID)
	}
	_, err := f.coord.CreateSettlement(ctx, carol, SettlementInput{PaidToID: alice.UserID, GroupID: f.groupID, Amount: dec("5")})
	require.NoError(t, err)

	list, err := f.coord.ListSettlements(ctx, bob, SettlementQuery{Status: models.StatusPending, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, list.Page)
	assert.Equal(t, 3, list.TotalItems)
	assert.Equal(t, 2, list.TotalPages)
	assertAmount(t, "60", list.TotalAmount)
	require.Len(t, list.Settlements, 2)

	list, err = f.coord.ListSettlements(ctx, bob, SettlementQuery{Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, list.Settlements, 1)

	group, err := f.coord.ListSettlements(ctx, carol, SettlementQuery{GroupID: f.groupID})
	require.NoError(t, err)
	assert.Equal(t, 4, group.TotalItems)
	assert.Equal(t, 10, group.Limit)

	_, err = f.coord.ListSettlements(ctx, dave, SettlementQuery{GroupID: f.groupID})
	assert.Equal(t, errs.Authorization, errs.KindOf(err))
}

func TestGroupPlan(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.dinner(t)

	_, err := f.coord.CreateExpense(ctx, bob, ExpenseInput{
		GroupID:      f.groupID,
		Description:  "Tickets",
		Amount:       dec("30"),
		Currency:     "EUR",
		SplitType:    models.SplitEqual,
		Participants: equalSplit("bob", "carol"),
	})
	require.NoError(t, err)

	plan, err := f.agg.GroupPlan(ctx, carol, f.groupID)
	require.NoError(t, err)

	// alice +60, bob -30+15 = -15, carol -30-15 = -45
	require.Len(t, plan.Balances, 3)
	assertAmount(t, "60", plan.Balances[0].NetBalance)
	require.Len(t, plan.Transfers, 2)
	assert.Equal(t, "carol", plan.Transfers[0].From)
	assert.Equal(t, "alice", plan.Transfers[0].To)
	assertAmount(t, "45", plan.Transfers[0].Amount)
	assert.Equal(t, "bob", plan.Transfers[1].From)
	assertAmount(t, "15", plan.Transfers[1].Amount)
	assert.Equal(t, 3, plan.OriginalTransactions)
	assert.Equal(t, 1, plan.Savings)
	assert.Empty(t, plan.FormerMembers)

	require.NoError(t, f.store.DeactivateGroupMember(ctx, f.groupID, carol.UserID))
	plan, err = f.agg.GroupPlan(ctx, bob, f.groupID)
	require.NoError(t, err)
	assert.Equal(t, []string{"carol"}, plan.FormerMembers)

	_, err = f.agg.GroupPlan(ctx, dave, f.groupID)
	assert.Equal(t, errs.Authorization, errs.KindOf(err))
}

func TestSuggestions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.dinner(t)

	suggestions, err := f.agg.Suggestions(ctx, alice.UserID)
	require.NoError(t, err)
	require.Len(t, suggestions, 2)
	assert.Equal(t, calculator.SuggestCollect, suggestions[0].Type)
	assertAmount(t, "30", suggestions[0].Amount)
	assertAmount(t, "3", suggestions[0].Priority)
	assert.Equal(t, models.MethodCash, suggestions[0].SuggestedMethod)

	suggestions, err = f.agg.Suggestions(ctx, bob.UserID)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	assert.Equal(t, calculator.SuggestPay, suggestions[0].Type)
	assert.Equal(t, alice.UserID, suggestions[0].CounterpartyID)
}

func TestPairLocks(t *testing.T) {
	locks := newPairLocks()
	unlock := locks.lock("b", "a")

	acquired := make(chan struct{})
	released := make(chan struct{})
	go func() {
		release := locks.lock("a", "b")
		close(acquired)
		release()
		close(released)
	}()

	select {
	case <-acquired:
		t.Fatal("pair lock acquired twice")
	case <-time.After(20 * time.Millisecond):
	}
	unlock()
	<-acquired
	<-released

	locks.mu.Lock()
	defer locks.mu.Unlock()
	assert.Empty(t, locks.locks)
}
