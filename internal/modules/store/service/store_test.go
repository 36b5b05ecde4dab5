package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"crossover_bot/internal/models"
	"crossover_bot/pkg/db"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type execCall struct {
	sql  string
	args []any
}

// fakeConn отвечает на Exec заранее заданным тегом.
type fakeConn struct {
	calls []execCall
	tag   string
	err   error
	row   pgx.Row
}

func (f *fakeConn) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	if f.err != nil {
		return pgconn.CommandTag{}, f.err
	}
	return pgconn.NewCommandTag(f.tag), nil
}

func (f *fakeConn) Query(context.Context, string, ...interface{}) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeConn) QueryRow(_ context.Context, sql string, args ...interface{}) pgx.Row {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	return f.row
}

// boolRow отдаёт одно bool-значение в Scan.
type boolRow struct {
	v   bool
	err error
}

func (r boolRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*(dest[0].(*bool)) = r.v
	return nil
}

type fakeBatch struct {
	tags []string
	i    int
}

func (b *fakeBatch) Exec() (pgconn.CommandTag, error) {
	tag := b.tags[b.i]
	b.i++
	return pgconn.NewCommandTag(tag), nil
}
func (b *fakeBatch) Query() (pgx.Rows, error) { return nil, errors.New("not implemented") }
func (b *fakeBatch) QueryRow() pgx.Row        { return nil }
func (b *fakeBatch) Close() error             { return nil }

type fakeTx struct {
	pgx.Tx
	conn   *fakeConn
	batch  *fakeBatch
	queued int
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.conn.Exec(ctx, sql, args...)
}

func (t *fakeTx) SendBatch(_ context.Context, b *pgx.Batch) pgx.BatchResults {
	t.queued = b.Len()
	return t.batch
}

// fakeManager выполняет fn «в транзакции» и помнит, был ли коммит.
type fakeManager struct {
	conn      *fakeConn
	tx        *fakeTx
	committed bool
}

func newFakeManager(tag string) *fakeManager {
	c := &fakeConn{tag: tag}
	return &fakeManager{conn: c, tx: &fakeTx{conn: c}}
}

func (m *fakeManager) RunMaster(ctx context.Context, fn func(ctxTx context.Context, tx pgx.Tx) error) error {
	if err := fn(ctx, m.tx); err != nil {
		return err
	}
	m.committed = true
	return nil
}

func (m *fakeManager) Conn() db.Transaction { return m.conn }

func newStore(m *fakeManager) *Store { return &Store{db: m, log: zap.NewNop()} }

var day = time.Date(2024, 6, 1, 15, 30, 0, 0, time.UTC)

func TestInsertSignalReportsDuplicates(t *testing.T) {
	m := newFakeManager("INSERT 0 1")
	s := newStore(m)
	sig := models.Signal{
		ID: models.SignalID("BTCUSDT", day, models.SideBuy), Symbol: "BTCUSDT", Side: models.SideBuy,
		Day: day, Timestamp: day, CalculatedAt: day,
		Price: decimal.NewFromInt(1), SMAShort: decimal.NewFromInt(2), SMALong: decimal.NewFromInt(1),
	}

	inserted, err := s.InsertSignal(context.Background(), sig)
	require.NoError(t, err)
	assert.True(t, inserted)

	call := m.conn.calls[0]
	assert.Equal(t, sig.ID.String(), call.args[0])
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), call.args[2])
	assert.Equal(t, "BUY", call.args[3])

	m.conn.tag = "INSERT 0 0"
	inserted, err = s.InsertSignal(context.Background(), sig)
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestSaveDailyPriceOnlyReplacesHistorical(t *testing.T) {
	m := newFakeManager("INSERT 0 0")
	s := newStore(m)

	err := s.SaveDailyPrice(context.Background(), models.DailyPrice{
		Symbol: "BTCUSDT", Day: day,
		Open: decimal.NewFromInt(1), High: decimal.NewFromInt(3), Low: decimal.NewFromInt(1), Close: decimal.NewFromInt(2),
	})
	require.NoError(t, err)

	call := m.conn.calls[0]
	assert.True(t, strings.Contains(call.sql, "WHERE daily_prices.is_historical"))
	assert.Equal(t, []any{"BTCUSDT", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), "1", "3", "1", "2"}, call.args)
}

func TestSaveDailyPriceWrapsErrors(t *testing.T) {
	m := newFakeManager("")
	m.conn.err = errors.New("conn refused")

	err := newStore(m).SaveDailyPrice(context.Background(), models.DailyPrice{Symbol: "BTCUSDT", Day: day})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save daily price BTCUSDT 2024-06-01")
}

func TestUpsertHistoricalCountsChangedRows(t *testing.T) {
	m := newFakeManager("")
	m.tx.batch = &fakeBatch{tags: []string{"INSERT 0 1", "INSERT 0 0", "INSERT 0 1"}}
	s := newStore(m)

	prices := make([]models.DailyPrice, 3)
	for i := range prices {
		prices[i] = models.DailyPrice{Symbol: "BTCUSDT", Day: day.AddDate(0, 0, i), IsHistorical: true}
	}
	n, err := s.UpsertHistorical(context.Background(), prices)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 3, m.tx.queued)
	assert.True(t, m.committed)

	n, err = s.UpsertHistorical(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRecordOrderAppliesInsideTx(t *testing.T) {
	m := newFakeManager("INSERT 0 1")
	s := newStore(m)
	o := models.Order{Symbol: "BTCUSDT", Side: models.SideBuy, Price: decimal.NewFromInt(5), Timestamp: day}

	applied := false
	inserted, err := s.RecordOrder(context.Background(), o, func(context.Context) error {
		applied = true
		assert.False(t, m.committed, "apply runs before commit")
		return nil
	})
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.True(t, applied)
	assert.True(t, m.committed)
}

func TestRecordOrderApplyFailureRollsBack(t *testing.T) {
	m := newFakeManager("INSERT 0 1")
	s := newStore(m)

	inserted, err := s.RecordOrder(context.Background(), models.Order{Symbol: "BTCUSDT"}, func(context.Context) error {
		return errors.New("redis down")
	})
	require.Error(t, err)
	assert.False(t, inserted)
	assert.False(t, m.committed)
}

func TestParseOHLC(t *testing.T) {
	o, h, l, c, err := parseOHLC("1.5", "2", "1", "1.75")
	require.NoError(t, err)
	assert.True(t, o.Equal(decimal.RequireFromString("1.5")))
	assert.True(t, h.Equal(decimal.NewFromInt(2)))
	assert.True(t, l.Equal(decimal.NewFromInt(1)))
	assert.True(t, c.Equal(decimal.RequireFromString("1.75")))

	_, _, _, _, err = parseOHLC("1", "x", "1", "1")
	assert.Error(t, err)
}

func TestHasOrder(t *testing.T) {
	m := newFakeManager("")
	s := newStore(m)
	id := models.SignalID("BTCUSDT", day, models.SideBuy)

	m.conn.row = boolRow{v: true}
	ok, err := s.HasOrder(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, id.String(), m.conn.calls[0].args[0])

	m.conn.row = boolRow{err: errors.New("conn closed")}
	_, err = s.HasOrder(context.Background(), id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "check order for signal")
}
