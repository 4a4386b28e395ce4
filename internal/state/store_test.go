package state

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/redshift-lineage/internal/testutil"
	"github.com/leapstack-labs/redshift-lineage/pkg/lineage"
)

func tickingClock() func() time.Time {
	base := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), ":memory:",
		WithLogger(testutil.NewTestLogger(t)),
		WithClock(tickingClock()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func record(sinks map[string][]string, sources []string, name string, pos *lineage.SourcePosition) lineage.Info {
	m := map[string]lineage.Set{}
	for k, v := range sinks {
		m[k] = lineage.NewSet(v...)
	}
	info := lineage.NewInfo(m, lineage.NewSet(sources...))
	if pos != nil {
		info = info.WithContext(lineage.Context{PositionInSource: pos})
	}
	if name != "" {
		info = info.WithSourceName(name)
	}
	return info
}

func TestStore_MigrationVersion(t *testing.T) {
	s := setupTestStore(t)
	v, err := s.MigrationVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	pos := &lineage.SourcePosition{
		Start: lineage.TextPosition{Line: 1, PositionInLine: 0},
		Stop:  lineage.TextPosition{Line: 2, PositionInLine: 31},
	}
	infos := []lineage.Info{
		record(map[string][]string{"t3": {"t1", "t2"}, "empty": {}}, []string{"t1", "t2"}, "etl.sql", pos),
		record(nil, []string{"users"}, "", nil),
	}

	run, err := s.SaveRun(ctx, "etl.sql", infos)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, 2, run.Records)

	got, err := s.LoadRun(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, []string{"empty", "t3"}, got[0].Sinks())
	assert.Empty(t, got[0].Lineage["empty"])
	assert.Equal(t, []string{"t1", "t2"}, got[0].Lineage["t3"].Sorted())
	assert.Equal(t, []string{"t1", "t2"}, got[0].Sources.Sorted())
	require.NotNil(t, got[0].Context)
	require.NotNil(t, got[0].Context.SourceName)
	assert.Equal(t, "etl.sql", *got[0].Context.SourceName)
	assert.Equal(t, pos, got[0].Position())

	assert.Empty(t, got[1].Lineage)
	assert.Equal(t, []string{"users"}, got[1].Sources.Sorted())
	assert.Nil(t, got[1].Context)
}

func TestStore_Runs(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	first, err := s.SaveRun(ctx, "a.sql", []lineage.Info{record(nil, []string{"x"}, "", nil)})
	require.NoError(t, err)
	second, err := s.SaveRun(ctx, "b.sql", nil)
	require.NoError(t, err)

	runs, err := s.Runs(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.ID, runs[0].ID)
	assert.Equal(t, 0, runs[0].Records)
	assert.Equal(t, first.ID, runs[1].ID)
	assert.Equal(t, 1, runs[1].Records)
	assert.True(t, runs[1].CreatedAt.Before(runs[0].CreatedAt))

	one, err := s.Run(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, runs[1], *one)
}

func TestStore_LatestInfosSupersedesOlderRuns(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	_, err := s.SaveRun(ctx, "etl.sql", []lineage.Info{
		record(map[string][]string{"old_sink": {"a"}}, []string{"a"}, "etl.sql", nil),
	})
	require.NoError(t, err)
	_, err = s.SaveRun(ctx, "etl.sql", []lineage.Info{
		record(map[string][]string{"new_sink": {"b"}}, []string{"b"}, "etl.sql", nil),
	})
	require.NoError(t, err)
	_, err = s.SaveRun(ctx, "other.sql", []lineage.Info{
		record(map[string][]string{"c": {"new_sink"}}, []string{"new_sink"}, "other.sql", nil),
	})
	require.NoError(t, err)

	infos, err := s.LatestInfos(ctx)
	require.NoError(t, err)

	var sinks []string
	for _, info := range infos {
		sinks = append(sinks, info.Sinks()...)
	}
	assert.ElementsMatch(t, []string{"new_sink", "c"}, sinks)
}

func TestStore_Edges(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	run, err := s.SaveRun(ctx, "etl.sql", []lineage.Info{
		record(map[string][]string{"mid": {"raw"}}, []string{"raw"}, "", nil),
		record(map[string][]string{"mart": {"mid", "dim"}}, []string{"mid", "dim"}, "", nil),
	})
	require.NoError(t, err)

	edges, err := s.Edges(ctx, "mid")
	require.NoError(t, err)
	assert.Equal(t, []Edge{
		{RunID: run.ID, Sink: "mid", Source: "raw"},
		{RunID: run.ID, Sink: "mart", Source: "mid"},
	}, edges)

	none, err := s.Edges(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_DeleteRun(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)

	run, err := s.SaveRun(ctx, "etl.sql", []lineage.Info{
		record(map[string][]string{"t": {"s"}}, []string{"s"}, "", nil),
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteRun(ctx, run.ID))
	infos, err := s.LoadRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Empty(t, infos)

	edges, err := s.Edges(ctx, "t")
	require.NoError(t, err)
	assert.Empty(t, edges, "records should cascade")

	err = s.DeleteRun(ctx, run.ID)
	assert.ErrorIs(t, err, ErrRunNotFound)
	_, err = s.Run(ctx, run.ID)
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestStore_NotOpen(t *testing.T) {
	ctx := context.Background()
	s := NewWithDB(nil)

	_, err := s.SaveRun(ctx, "x", nil)
	assert.ErrorIs(t, err, ErrNotOpen)
	_, err = s.Runs(ctx)
	assert.ErrorIs(t, err, ErrNotOpen)
	_, err = s.LoadRun(ctx, "id")
	assert.ErrorIs(t, err, ErrNotOpen)
	assert.ErrorIs(t, s.Migrate(ctx), ErrNotOpen)
	assert.NoError(t, s.Close())
}

func TestStore_SaveRunErrors(t *testing.T) {
	info := record(map[string][]string{"t": {"s"}}, []string{"s"}, "", nil)

	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		errMsg    string
	}{
		{
			name: "begin fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin().WillReturnError(assert.AnError)
			},
			errMsg: "failed to begin transaction",
		},
		{
			name: "run insert fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT INTO runs").WillReturnError(assert.AnError)
				mock.ExpectRollback()
			},
			errMsg: "failed to insert run",
		},
		{
			name: "record insert fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT INTO runs").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec("INSERT INTO records").WillReturnError(assert.AnError)
				mock.ExpectRollback()
			},
			errMsg: "failed to insert record 0",
		},
		{
			name: "edge insert fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT INTO runs").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec("INSERT INTO records").WillReturnResult(sqlmock.NewResult(7, 1))
				mock.ExpectExec("INSERT INTO record_sinks").WithArgs(int64(7), "t").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec("INSERT INTO edges").WillReturnError(assert.AnError)
				mock.ExpectRollback()
			},
			errMsg: "failed to insert edge t <- s",
		},
		{
			name: "commit fails",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT INTO runs").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec("INSERT INTO records").WillReturnResult(sqlmock.NewResult(1, 1))
				mock.ExpectExec("INSERT INTO record_sinks").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec("INSERT INTO edges").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectExec("INSERT INTO record_sources").WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectCommit().WillReturnError(assert.AnError)
			},
			errMsg: "failed to commit run",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer func() { _ = db.Close() }()

			tt.setupMock(mock)
			s := NewWithDB(db)

			_, err = s.SaveRun(context.Background(), "etl.sql", []lineage.Info{info})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStore_QueryErrors(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		call      func(s *Store) error
		errMsg    string
	}{
		{
			name: "runs query",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("FROM runs").WillReturnError(assert.AnError)
			},
			call: func(s *Store) error {
				_, err := s.Runs(context.Background())
				return err
			},
			errMsg: "failed to query runs",
		},
		{
			name: "bad timestamp",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("FROM runs").WillReturnRows(
					sqlmock.NewRows([]string{"id", "source_name", "created_at", "count"}).
						AddRow("r1", "a.sql", "yesterday", 0))
			},
			call: func(s *Store) error {
				_, err := s.Runs(context.Background())
				return err
			},
			errMsg: "invalid timestamp for run r1",
		},
		{
			name: "records query",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("FROM records").WillReturnError(assert.AnError)
			},
			call: func(s *Store) error {
				_, err := s.LoadRun(context.Background(), "r1")
				return err
			},
			errMsg: "failed to query records",
		},
		{
			name: "sinks query",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("FROM records").WillReturnRows(
					sqlmock.NewRows([]string{"id", "source_name", "start_line", "start_pos", "stop_line", "stop_pos"}).
						AddRow(int64(1), nil, nil, nil, nil, nil))
				mock.ExpectQuery("FROM record_sinks").WillReturnError(assert.AnError)
			},
			call: func(s *Store) error {
				_, err := s.LoadRun(context.Background(), "r1")
				return err
			},
			errMsg: "failed to load sinks",
		},
		{
			name: "edges query",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("FROM edges").WillReturnError(assert.AnError)
			},
			call: func(s *Store) error {
				_, err := s.Edges(context.Background(), "t")
				return err
			},
			errMsg: "failed to query edges",
		},
		{
			name: "delete",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("DELETE FROM runs").WillReturnError(assert.AnError)
			},
			call: func(s *Store) error {
				return s.DeleteRun(context.Background(), "r1")
			},
			errMsg: "failed to delete run",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer func() { _ = db.Close() }()

			tt.setupMock(mock)
			err = tt.call(NewWithDB(db))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStore_OpenFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "lineage.db")

	s, err := Open(ctx, path)
	require.NoError(t, err)
	_, err = s.SaveRun(ctx, "a.sql", []lineage.Info{record(nil, []string{"x"}, "", nil)})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	reopened, err := Open(ctx, path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	runs, err := reopened.Runs(ctx)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
