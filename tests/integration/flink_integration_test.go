//go:build integration

package integration

import (
	"context"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tsuite "github.com/stretchr/testify/suite"
	tc "github.com/testcontainers/testcontainers-go"

	"github.com/resinkit/resinkit-go/core"
	"github.com/resinkit/resinkit-go/core/builders"
	th "github.com/resinkit/resinkit-go/tests/testhelpers"
)

// FlinkTestSuite runs statements against a real flink sql gateway.
type FlinkTestSuite struct {
	tsuite.Suite
	ctr *th.FlinkContainer
	ctx context.Context
}

// TestFlinkTestSuite is the entrypoint for go test.
//
// testify/suite can't handle parallel tests, see
// https://github.com/stretchr/testify/issues/934
func TestFlinkTestSuite(t *testing.T) {
	tsuite.Run(t, new(FlinkTestSuite))
}

func (suite *FlinkTestSuite) SetupSuite() {
	suite.ctx = context.Background()
	ctr, err := th.NewFlinkContainer(suite.ctx)
	if err != nil {
		log.Fatal(err)
	}
	suite.ctr = ctr
}

func (suite *FlinkTestSuite) TearDownSuite() {
	tc.CleanupContainer(suite.T(), suite.ctr)
}

func (suite *FlinkTestSuite) batchSession() []core.SessionOption {
	return []core.SessionOption{
		core.WithProperties(map[string]string{"execution.runtime-mode": "batch"}),
	}
}

func (suite *FlinkTestSuite) TestShouldReturnInfo() {
	t := suite.T()

	info, err := suite.ctr.Client.Info(suite.ctx)
	require.NoError(t, err)
	assert.Equal(t, "Apache Flink", info.ProductName)

	versions, err := suite.ctr.Client.APIVersions(suite.ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, versions)
}

func (suite *FlinkTestSuite) TestShouldReturnRows() {
	t := suite.T()

	query := `SELECT id, name FROM (VALUES (1, 'a'), (2, 'b'), (3, 'c')) AS t(id, name)`

	err := core.Use(suite.ctx, suite.ctr.Client, func(s *core.Session) error {
		return s.Execute(query).Sync(suite.ctx, func(op *core.Operation) error {
			opts, err := core.NewFetchOptions(core.WithMaxPoll(core.DefaultMaxPoll * 6))
			require.NoError(t, err)

			table, states, err := th.FetchCall(t, op, opts)
			require.NoError(t, err)

			assert.Equal(t, []core.CallState{
				core.CallStateExecuting, core.CallStateRetrieving, core.CallStateDone,
			}, states)
			assert.Equal(t, core.Header{"id", "name"}, table.Header())
			assert.Equal(t, []core.Row{{int32(1), "a"}, {int32(2), "b"}, {int32(3), "c"}}, table.Rows)
			assert.Equal(t, core.TerminationEndOfStream, table.Meta.Termination)
			return nil
		})
	}, suite.batchSession()...)
	require.NoError(t, err)
}

func (suite *FlinkTestSuite) TestShouldStopAtRowLimit() {
	t := suite.T()

	query := `SELECT * FROM (VALUES (1), (2), (3), (4), (5)) AS t(v)`

	err := core.Use(suite.ctx, suite.ctr.Client, func(s *core.Session) error {
		return s.Execute(query).Sync(suite.ctx, func(op *core.Operation) error {
			opts, err := core.NewFetchOptions(core.WithRowLimit(1), core.WithMaxPoll(core.DefaultMaxPoll*6))
			require.NoError(t, err)

			table, err := op.Fetch(suite.ctx, opts)
			require.NoError(t, err)

			// pages are never truncated
			assert.GreaterOrEqual(t, table.Len(), 1)
			assert.Contains(t, []core.Termination{core.TerminationRowLimit, core.TerminationEndOfStream}, table.Meta.Termination)
			return nil
		})
	}, suite.batchSession()...)
	require.NoError(t, err)
}

func (suite *FlinkTestSuite) TestShouldRunSeveralStatements() {
	t := suite.T()

	statements := []string{
		`CREATE TEMPORARY VIEW numbers AS SELECT * FROM (VALUES (1), (2)) AS t(v)`,
		`SELECT v FROM numbers`,
	}

	err := core.Use(suite.ctx, suite.ctr.Client, func(s *core.Session) error {
		return s.ExecuteAll(statements).Sync(suite.ctx, func(c *core.CompositeOperation) error {
			opts, err := core.NewFetchOptions(core.WithMaxPoll(core.DefaultMaxPoll * 6))
			require.NoError(t, err)

			tables, err := c.FetchAll(suite.ctx, opts)
			require.NoError(t, err)
			require.Len(t, tables, 2)

			assert.Equal(t, []core.Row{{int32(1)}, {int32(2)}}, tables[1].Rows)
			return nil
		})
	}, suite.batchSession()...)
	require.NoError(t, err)
}

func (suite *FlinkTestSuite) TestShouldDescribeTable() {
	t := suite.T()

	statements := []string{
		`CREATE TEMPORARY TABLE orders (id BIGINT NOT NULL, price DECIMAL(10, 2)) WITH ('connector' = 'datagen')`,
		`DESCRIBE orders`,
	}

	err := core.Use(suite.ctx, suite.ctr.Client, func(s *core.Session) error {
		return s.ExecuteAll(statements).Sync(suite.ctx, func(c *core.CompositeOperation) error {
			opts := core.DefaultFetchOptions()

			_, err := c.Operations()[0].Fetch(suite.ctx, opts)
			require.NoError(t, err)

			rows := builders.StreamOperation(suite.ctx, c.Operations()[1], opts, nil)
			defer rows.Close()

			columns, err := builders.ColumnsFromResultStream(rows)
			require.NoError(t, err)
			require.Len(t, columns, 2)

			assert.Equal(t, "id", columns[0].Name)
			assert.Equal(t, "BIGINT", columns[0].LogicalType)
			assert.False(t, columns[0].Nullable)
			assert.Equal(t, "DECIMAL", columns[1].LogicalType)
			assert.Equal(t, "DECIMAL(10, 2)", columns[1].SQLType())
			return nil
		})
	}, suite.batchSession()...)
	require.NoError(t, err)
}

func (suite *FlinkTestSuite) TestShouldFailInvalidStatement() {
	t := suite.T()

	err := core.Use(suite.ctx, suite.ctr.Client, func(s *core.Session) error {
		return s.Execute("invalid sql").Sync(suite.ctx, func(op *core.Operation) error {
			_, err := op.Fetch(suite.ctx, core.DefaultFetchOptions())
			return err
		})
	})
	assert.ErrorIs(t, err, core.ErrUnexpectedStatus)
}

func (suite *FlinkTestSuite) TestShouldCompleteStatement() {
	t := suite.T()

	err := core.Use(suite.ctx, suite.ctr.Client, func(s *core.Session) error {
		candidates, err := s.CompleteStatement(suite.ctx, 3, "SEL")
		require.NoError(t, err)
		assert.Contains(t, candidates, "SELECT")

		assert.True(t, s.IsAlive(suite.ctx))

		config, err := s.Config(suite.ctx)
		require.NoError(t, err)
		assert.NotEmpty(t, config)
		return nil
	})
	require.NoError(t, err)
}
