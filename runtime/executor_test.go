package runtime

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemaforge/schemaforge/connector"
	"github.com/schemaforge/schemaforge/migrate/diff"
	"github.com/schemaforge/schemaforge/migrate/sqlgen"
	"github.com/schemaforge/schemaforge/schema"
	"github.com/schemaforge/schemaforge/telemetry"
)

// recordingConn is a Queryable test double that records every command in
// order and fails on demand.
type recordingConn struct {
	commands       []string
	failOn         string
	isolationFirst bool
	healthy        bool
}

func newRecordingConn() *recordingConn {
	return &recordingConn{healthy: true}
}

func (r *recordingConn) record(cmd string) error {
	r.commands = append(r.commands, cmd)
	if r.failOn != "" && strings.Contains(cmd, r.failOn) {
		return errors.New("forced failure")
	}
	return nil
}

func (r *recordingConn) Query(ctx context.Context, q Query) (*ResultSet, error) {
	return &ResultSet{}, r.record(q.SQL)
}

func (r *recordingConn) QueryRaw(ctx context.Context, sql string, args ...any) (*ResultSet, error) {
	return &ResultSet{}, r.record(sql)
}

func (r *recordingConn) Execute(ctx context.Context, q Query) (int64, error) {
	return 0, r.record(q.SQL)
}

func (r *recordingConn) ExecuteRaw(ctx context.Context, sql string, args ...any) (int64, error) {
	return 0, r.record(sql)
}

func (r *recordingConn) RawCmd(ctx context.Context, cmd string) error {
	return r.record(cmd)
}

func (r *recordingConn) Version(ctx context.Context) (string, error) {
	return "recording 1.0", nil
}

func (r *recordingConn) IsHealthy() bool { return r.healthy }

func (r *recordingConn) SetTxIsolationLevel(ctx context.Context, level IsolationLevel) error {
	return r.record("SET TRANSACTION ISOLATION LEVEL " + string(level))
}

func (r *recordingConn) RequiresIsolationFirst() bool { return r.isolationFirst }

func testPlan(t *testing.T, conn connector.Connector) *diff.Plan {
	t.Helper()
	d := diff.NewDiffer(conn)
	to := &schema.Schema{Tables: []schema.Table{
		{
			Name: "User",
			Columns: []schema.Column{
				{Name: "id", Type: connector.ScalarTypeInt, AutoIncrement: true},
				{Name: "email", Type: connector.ScalarTypeString},
			},
			PrimaryKey: &schema.PrimaryKey{Columns: []string{"id"}},
			Indexes: []schema.Index{
				{Name: "User_email_key", Columns: []string{"email"}, Unique: true},
			},
		},
	}}
	plan, err := d.Diff(&schema.Schema{}, to)
	require.NoError(t, err)
	return plan
}

func executorFor(t *testing.T, provider string, rec *recordingConn) (*Executor, *Pool, *diff.Plan) {
	t.Helper()
	conn, err := connector.ForProvider(provider)
	require.NoError(t, err)
	renderer, err := sqlgen.ForConnector(conn)
	require.NoError(t, err)
	exec := NewExecutor(conn, renderer, nil)
	p := NewExternalPool(rec, conn, nil)
	return exec, p, testPlan(t, conn)
}

func TestApplyPlanTransactional(t *testing.T) {
	rec := newRecordingConn()
	exec, p, plan := executorFor(t, "postgresql", rec)

	report, err := exec.ApplyPlan(context.Background(), p, plan, ApplyOptions{})
	require.NoError(t, err)

	assert.True(t, report.Transactional)
	assert.Equal(t, len(report.Statements), report.Applied)
	assert.Empty(t, report.Warnings)

	require.NotEmpty(t, rec.commands)
	assert.Equal(t, "BEGIN", rec.commands[0])
	assert.Equal(t, "COMMIT", rec.commands[len(rec.commands)-1])
}

func TestApplyPlanStrictOrder(t *testing.T) {
	rec := newRecordingConn()
	exec, p, plan := executorFor(t, "postgresql", rec)

	report, err := exec.ApplyPlan(context.Background(), p, plan, ApplyOptions{})
	require.NoError(t, err)

	// The recorded statements between BEGIN and COMMIT are exactly the
	// rendered plan, in plan order.
	assert.Equal(t, report.Statements, rec.commands[1:len(rec.commands)-1])
}

func TestApplyPlanHaltsOnFirstFailure(t *testing.T) {
	rec := newRecordingConn()
	rec.failOn = "CREATE UNIQUE INDEX"
	exec, p, plan := executorFor(t, "postgresql", rec)

	report, err := exec.ApplyPlan(context.Background(), p, plan, ApplyOptions{})
	require.Error(t, err)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, 1, stepErr.Index)
	assert.Contains(t, stepErr.Statement, "CREATE UNIQUE INDEX")
	assert.Equal(t, 1, report.Applied)

	// Failure inside a transaction rolls back and stops; nothing runs after
	// the failing statement.
	assert.Equal(t, "ROLLBACK", rec.commands[len(rec.commands)-1])
	for _, cmd := range rec.commands {
		assert.NotEqual(t, "COMMIT", cmd)
	}
}

func TestApplyPlanIsolationAfterBegin(t *testing.T) {
	rec := newRecordingConn()
	exec, p, plan := executorFor(t, "postgresql", rec)

	_, err := exec.ApplyPlan(context.Background(), p, plan, ApplyOptions{
		IsolationLevel: IsolationSerializable,
	})
	require.NoError(t, err)

	assert.Equal(t, "BEGIN", rec.commands[0])
	assert.Equal(t, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE", rec.commands[1])
}

func TestApplyPlanIsolationBeforeBegin(t *testing.T) {
	rec := newRecordingConn()
	rec.isolationFirst = true
	exec, p, plan := executorFor(t, "postgresql", rec)

	_, err := exec.ApplyPlan(context.Background(), p, plan, ApplyOptions{
		IsolationLevel: IsolationSerializable,
	})
	require.NoError(t, err)

	assert.Equal(t, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE", rec.commands[0])
	assert.Equal(t, "BEGIN", rec.commands[1])
}

func TestApplyPlanNonTransactionalWarns(t *testing.T) {
	rec := newRecordingConn()
	exec, p, plan := executorFor(t, "mysql", rec)

	report, err := exec.ApplyPlan(context.Background(), p, plan, ApplyOptions{})
	require.NoError(t, err)

	assert.False(t, report.Transactional)
	require.NotEmpty(t, report.Warnings)
	assert.Contains(t, report.Warnings[len(report.Warnings)-1], "does not support transactional DDL")

	// No transaction statements on this path.
	for _, cmd := range rec.commands {
		assert.NotEqual(t, "BEGIN", cmd)
		assert.NotEqual(t, "COMMIT", cmd)
	}
}

func TestApplyPlanNonTransactionalLeavesAppliedSteps(t *testing.T) {
	rec := newRecordingConn()
	rec.failOn = "CREATE UNIQUE INDEX"
	exec, p, plan := executorFor(t, "mysql", rec)

	report, err := exec.ApplyPlan(context.Background(), p, plan, ApplyOptions{})
	require.Error(t, err)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, 1, report.Applied)
	// No rollback is possible; the first statement stays applied.
	for _, cmd := range rec.commands {
		assert.NotEqual(t, "ROLLBACK", cmd)
	}
}

func TestApplyEmptyPlanTouchesNothing(t *testing.T) {
	rec := newRecordingConn()
	conn, err := connector.ForProvider("postgresql")
	require.NoError(t, err)
	renderer, err := sqlgen.ForConnector(conn)
	require.NoError(t, err)
	exec := NewExecutor(conn, renderer, nil)
	p := NewExternalPool(rec, conn, nil)

	report, err := exec.ApplyPlan(context.Background(), p, &diff.Plan{Provider: "postgresql"}, ApplyOptions{})
	require.NoError(t, err)
	assert.Zero(t, report.Applied)
	assert.Empty(t, rec.commands)
}

func TestExternalPoolCheckoutNeverBlocks(t *testing.T) {
	rec := newRecordingConn()
	conn, err := connector.ForProvider("postgresql")
	require.NoError(t, err)

	p := NewExternalPool(rec, conn, nil)
	assert.True(t, p.IsExternal())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// Even a cancelled context checks out immediately on the external path.
	c, err := p.CheckOut(ctx)
	require.NoError(t, err)
	assert.True(t, c.IsExternal())
	assert.NoError(t, c.Close())
}

func TestExternalConnectionTracing(t *testing.T) {
	rec := newRecordingConn()
	conn, err := connector.ForProvider("postgresql")
	require.NoError(t, err)

	tracer := telemetry.NewTracer()
	p := NewExternalPool(rec, conn, tracer)

	c, err := p.CheckOut(context.Background())
	require.NoError(t, err)

	require.NoError(t, c.RawCmd(context.Background(), "SELECT 1"))

	spans := tracer.Spans()
	require.Len(t, spans, 1)
	assert.Equal(t, "runtime_connection.external.raw_cmd", spans[0].Name)
	assert.Equal(t, "SELECT 1", spans[0].Attributes[telemetry.AttrStatement])
	assert.Equal(t, "postgresql", spans[0].Attributes[telemetry.AttrDBType])
}

func TestParseIsolationLevel(t *testing.T) {
	level, err := ParseIsolationLevel("repeatable_read")
	require.NoError(t, err)
	assert.Equal(t, IsolationRepeatableRead, level)

	level, err = ParseIsolationLevel("Serializable")
	require.NoError(t, err)
	assert.Equal(t, IsolationSerializable, level)

	_, err = ParseIsolationLevel("chaotic")
	require.Error(t, err)
}
