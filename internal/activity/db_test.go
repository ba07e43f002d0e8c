package activity

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edvin/vpshost/internal/model"
)

// ---------- Mock DB ----------

type mockDB struct {
	mock.Mock
}

func (m *mockDB) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *mockDB) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Rows), args.Error(1)
}

func (m *mockDB) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

// ---------- Mock Row ----------

type mockRow struct {
	scanFunc func(dest ...any) error
}

func (m *mockRow) Scan(dest ...any) error {
	return m.scanFunc(dest...)
}

// ---------- Mock Rows ----------

type mockRows struct {
	callIndex int
	scanFuncs []func(dest ...any) error
	err       error
}

func newMockRows(scanFuncs ...func(dest ...any) error) *mockRows {
	return &mockRows{scanFuncs: scanFuncs}
}

func (m *mockRows) Next() bool {
	return m.callIndex < len(m.scanFuncs)
}

func (m *mockRows) Scan(dest ...any) error {
	if m.callIndex < len(m.scanFuncs) {
		fn := m.scanFuncs[m.callIndex]
		m.callIndex++
		return fn(dest...)
	}
	return nil
}

func (m *mockRows) Err() error                                   { return m.err }
func (m *mockRows) Close()                                       {}
func (m *mockRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (m *mockRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (m *mockRows) RawValues() [][]byte                          { return nil }
func (m *mockRows) Values() ([]any, error)                       { return nil, nil }
func (m *mockRows) Conn() *pgx.Conn                              { return nil }

// ---------- GetInstanceByChargeRef ----------

func TestCoreDB_GetInstanceByChargeRef_MissingRowIsNil(t *testing.T) {
	db := &mockDB{}
	a := NewCoreDB(db)
	ctx := context.Background()

	row := &mockRow{scanFunc: func(dest ...any) error {
		return pgx.ErrNoRows
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(row)

	inst, err := a.GetInstanceByChargeRef(ctx, "ch-unknown")
	require.NoError(t, err)
	assert.Nil(t, inst)
	db.AssertExpectations(t)
}

// ---------- MarkInstanceRunning ----------

func TestCoreDB_MarkInstanceRunning_RowPresent(t *testing.T) {
	db := &mockDB{}
	a := NewCoreDB(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.NewCommandTag("UPDATE 1"), nil)

	found, err := a.MarkInstanceRunning(ctx, MarkInstanceRunningParams{ID: "test-inst-1", IPAddress: "203.0.113.5"})
	require.NoError(t, err)
	assert.True(t, found)
	db.AssertExpectations(t)
}

func TestCoreDB_MarkInstanceRunning_RowGone(t *testing.T) {
	db := &mockDB{}
	a := NewCoreDB(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.NewCommandTag("UPDATE 0"), nil)

	found, err := a.MarkInstanceRunning(ctx, MarkInstanceRunningParams{ID: "test-inst-1", IPAddress: "203.0.113.5"})
	require.NoError(t, err)
	assert.False(t, found)
	db.AssertExpectations(t)
}

// ---------- ListProvisioningInstanceIDs ----------

func TestCoreDB_ListProvisioningInstanceIDs(t *testing.T) {
	db := &mockDB{}
	a := NewCoreDB(db)
	ctx := context.Background()

	rows := newMockRows(
		func(dest ...any) error { *(dest[0].(*string)) = "inst-a"; return nil },
		func(dest ...any) error { *(dest[0].(*string)) = "inst-b"; return nil },
	)
	db.On("Query", ctx, mock.AnythingOfType("string"), mock.Anything).Return(rows, nil)

	ids, err := a.ListProvisioningInstanceIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"inst-a", "inst-b"}, ids)
	db.AssertExpectations(t)
}

// ---------- BeginReconcileRun ----------

func TestCoreDB_BeginReconcileRun_LiveGuardSkips(t *testing.T) {
	db := &mockDB{}
	a := NewCoreDB(db)
	ctx := context.Background()

	liveRow := &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*int)) = 1
		return nil
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(liveRow)

	runID, err := a.BeginReconcileRun(ctx, BeginReconcileRunParams{MaxAge: 30 * time.Minute})
	require.NoError(t, err)
	assert.Empty(t, runID)
	db.AssertExpectations(t)
}

func TestCoreDB_BeginReconcileRun_ClaimsGuard(t *testing.T) {
	db := &mockDB{}
	a := NewCoreDB(db)
	ctx := context.Background()

	liveRow := &mockRow{scanFunc: func(dest ...any) error {
		*(dest[0].(*int)) = 0
		return nil
	}}
	db.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(liveRow)
	// Stale-guard expiry, then the insert of the new run.
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.NewCommandTag("UPDATE 0"), nil).Once()
	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconn.NewCommandTag("INSERT 0 1"), nil).Once()

	runID, err := a.BeginReconcileRun(ctx, BeginReconcileRunParams{MaxAge: 30 * time.Minute})
	require.NoError(t, err)
	assert.NotEmpty(t, runID)
	db.AssertExpectations(t)
}

// ---------- SaveDomainVerification ----------

func TestCoreDB_SaveDomainVerification_EmptyDiagnosticStoresNull(t *testing.T) {
	db := &mockDB{}
	a := NewCoreDB(db)
	ctx := context.Background()

	db.On("Exec", ctx, mock.AnythingOfType("string"), mock.MatchedBy(func(args []any) bool {
		// expected_ip and last_error are positional args 6 and 7.
		return args[5] == (*string)(nil) && args[6] == (*string)(nil)
	})).Return(pgconn.NewCommandTag("UPDATE 1"), nil)

	err := a.SaveDomainVerification(ctx, SaveDomainVerificationParams{
		DomainID: "test-dom-1",
		Status:   model.SSLStatusPending,
	})
	require.NoError(t, err)
	db.AssertExpectations(t)
}
