package lineage_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/redshift-lineage/internal/testutil"
	"github.com/leapstack-labs/redshift-lineage/pkg/ast"
	"github.com/leapstack-labs/redshift-lineage/pkg/lineage"
	"github.com/leapstack-labs/redshift-lineage/pkg/transform"
)

// expected mirrors the YAML shape used by the cases below.
type expected struct {
	Lineage map[string][]string `yaml:"lineage"`
	Sources []string            `yaml:"sources"`
}

func parse(t *testing.T, sql string) []ast.Stmt {
	t.Helper()
	res, err := transform.ParseScript(sql, transform.Options{Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	return res.Statements
}

func flatten(info lineage.Info) expected {
	out := expected{Lineage: map[string][]string{}, Sources: info.Sources.Sorted()}
	for sink, sources := range info.Lineage {
		out.Lineage[sink] = sources.Sorted()
	}
	return out
}

func assertLineage(t *testing.T, sql, want string) {
	t.Helper()
	var exp expected
	require.NoError(t, yaml.Unmarshal([]byte(strings.TrimSpace(want)), &exp))
	norm := expected{Lineage: map[string][]string{}, Sources: lineage.NewSet(exp.Sources...).Sorted()}
	for sink, sources := range exp.Lineage {
		norm.Lineage[sink] = lineage.NewSet(sources...).Sorted()
	}

	ex := lineage.NewExtractor(lineage.WithLogger(testutil.NewTestLogger(t)))
	got := ex.Script(parse(t, sql))
	assert.Equal(t, norm, flatten(got))
}

func TestSelectLineage(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want string
	}{
		{
			name: "no sink",
			sql:  `SELECT id, name, age FROM users;`,
			want: `
lineage: {}
sources: [users]`,
		},
		{
			name: "select into",
			sql: `SELECT id, name, age
INTO new_users
FROM users;`,
			want: `
lineage:
  new_users: [users]
sources: [users]`,
		},
		{
			name: "cte",
			sql: `WITH user_data AS (
    SELECT id, name, age FROM users
)
SELECT id, name, age
INTO new_users
FROM user_data;`,
			want: `
lineage:
  new_users: [users]
sources: [users]`,
		},
		{
			name: "cte chain",
			sql: `WITH user_data AS (
    SELECT id, name, age FROM users
),
staging_users AS (
    SELECT id, name, age FROM user_data WHERE age > 20
)
SELECT id, name, age
INTO new_users
FROM staging_users;`,
			want: `
lineage:
  new_users: [users]
sources: [users]`,
		},
		{
			name: "cte join",
			sql: `WITH user_data AS (
    SELECT id, name, age FROM users
),
staging_users AS (
    SELECT id, name, age
    FROM user_data
        JOIN other_data ON user_data.id = other_data.user_id
    WHERE age > 20
)
SELECT id, name, age
INTO new_users
FROM staging_users;`,
			want: `
lineage:
  new_users: [users, other_data]
sources: [users, other_data]`,
		},
		{
			name: "union",
			sql: `SELECT id, name, age FROM users
UNION ALL
SELECT id, name, age FROM other_users;`,
			want: `
lineage: {}
sources: [users, other_users]`,
		},
		{
			name: "where subqueries",
			sql: `SELECT id, name, age
INTO new_users
FROM users
WHERE age BETWEEN (SELECT MIN(age) FROM adult_users) AND (SELECT MAX(age) FROM retired_users);`,
			want: `
lineage:
  new_users: [users, adult_users, retired_users]
sources: [users, adult_users, retired_users]`,
		},
		{
			name: "target in subquery",
			sql: `SELECT
    id, name, age,
    age IN (
        SELECT age FROM adult_users
        UNION ALL
        SELECT age FROM retired_users
    ) AS is_adult_or_retired
INTO new_users
FROM users`,
			want: `
lineage:
  new_users: [users, adult_users, retired_users]
sources: [users, adult_users, retired_users]`,
		},
		{
			name: "nested select statement",
			sql: `SELECT id, name, age
INTO new_users
FROM (
    (
        WITH preprocessed_users AS
        (
            SELECT id, name, age FROM users
        )
        SELECT * FROM preprocessed_users
    )
    UNION ALL
    SELECT id, name, age FROM other_users
) AS combined_users;`,
			want: `
lineage:
  new_users: [users, other_users]
sources: [users, other_users]`,
		},
		{
			name: "qualify subquery",
			sql: `SELECT id, name, MAX(age) OVER(PARTITION BY id ORDER BY age) AS max_age
INTO new_users
FROM users
QUALIFY max_age > (SELECT AVG(age) FROM ref_users);`,
			want: `
lineage:
  new_users: [users, ref_users]
sources: [users, ref_users]`,
		},
		{
			name: "having subquery",
			sql: `SELECT dept, COUNT(*) INTO dept_counts FROM staff
GROUP BY dept HAVING COUNT(*) > (SELECT AVG(n) FROM dept_sizes);`,
			want: `
lineage:
  dept_counts: [staff, dept_sizes]
sources: [staff, dept_sizes]`,
		},
		{
			name: "limit",
			sql:  `SELECT id, name, age FROM users LIMIT 10;`,
			want: `
lineage: {}
sources: [users]`,
		},
		{
			name: "top",
			sql:  `SELECT TOP 10 id, name, age FROM users;`,
			want: `
lineage: {}
sources: [users]`,
		},
		{
			name: "values",
			sql:  `VALUES (1, 2), (3, 4);`,
			want: `
lineage: {}
sources: []`,
		},
		{
			name: "join conditions are not read",
			sql:  `SELECT a.id FROM a JOIN b ON a.id IN (SELECT id FROM c);`,
			want: `
lineage: {}
sources: [a, b]`,
		},
		{
			name: "subquery into does not escape",
			sql:  `SELECT x FROM (SELECT x INTO inner_sink FROM t) s;`,
			want: `
lineage: {}
sources: [t]`,
		},
		{
			name: "cte inside expression subquery",
			sql: `SELECT id FROM users
WHERE id IN (WITH c AS (SELECT id FROM base) SELECT id FROM c);`,
			want: `
lineage: {}
sources: [users, base]`,
		},
		{
			name: "exists",
			sql:  `SELECT id INTO active FROM users u WHERE EXISTS (SELECT 1 FROM logins l WHERE l.uid = u.id);`,
			want: `
lineage:
  active: [users, logins]
sources: [users, logins]`,
		},
		{
			name: "intersect and minus",
			sql:  `SELECT id FROM a INTERSECT SELECT id FROM b MINUS SELECT id FROM c;`,
			want: `
lineage: {}
sources: [a, b, c]`,
		},
		{
			name: "comma from and nested join",
			sql:  `SELECT * FROM s1.a, (s2.b CROSS JOIN c) AS bc LEFT JOIN d USING (id);`,
			want: `
lineage: {}
sources: [s1.a, s2.b, c, d]`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertLineage(t, tt.sql, tt.want)
		})
	}
}

func TestInsertLineage(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want string
	}{
		{
			name: "values",
			sql: `INSERT INTO users (id, name, age)
VALUES (1, 'Alice', 30), (2, 'Bob', 25);`,
			want: `
lineage:
  users: []
sources: []`,
		},
		{
			name: "select",
			sql: `INSERT INTO users (id, name, age)
SELECT id, name, age FROM temp_users;`,
			want: `
lineage:
  users: [temp_users]
sources: [temp_users]`,
		},
		{
			name: "cte",
			sql: `WITH new_users AS (
    SELECT id, name, age FROM temp_users
)
INSERT INTO users (id, name, age)
SELECT id, name, age FROM new_users;`,
			want: `
lineage:
  users: [temp_users]
sources: [temp_users]`,
		},
		{
			name: "cte chain",
			sql: `WITH new_users AS (
    SELECT id, name, age FROM temp_users
)
, staging_users AS (
    SELECT id, name, age FROM new_users WHERE age > 20
)
INSERT INTO users (id, name, age)
SELECT id, name, age FROM staging_users;`,
			want: `
lineage:
  users: [temp_users]
sources: [temp_users]`,
		},
		{
			name: "default values",
			sql:  `INSERT INTO audit DEFAULT VALUES;`,
			want: `
lineage:
  audit: []
sources: []`,
		},
		{
			name: "nested select into is kept",
			sql:  `INSERT INTO t2 SELECT a INTO t3 FROM t1;`,
			want: `
lineage:
  t2: [t1]
  t3: [t1]
sources: [t1]`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertLineage(t, tt.sql, tt.want)
		})
	}
}

func TestDeleteLineage(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want string
	}{
		{
			name: "no source",
			sql:  `DELETE FROM users WHERE age < 18;`,
			want: `
lineage:
  users: []
sources: []`,
		},
		{
			name: "in subquery",
			sql: `DELETE FROM users
WHERE age < 18
OR id IN (SELECT id FROM churned_users);`,
			want: `
lineage:
  users: [churned_users]
sources: [churned_users]`,
		},
		{
			name: "using",
			sql:  `DELETE FROM users USING banned b WHERE users.id = b.id;`,
			want: `
lineage:
  users: [banned]
sources: [banned]`,
		},
		{
			name: "cte",
			sql: `WITH gone AS (SELECT id FROM churned_users)
DELETE FROM users WHERE id IN (SELECT id FROM gone);`,
			want: `
lineage:
  users: [churned_users]
sources: [churned_users]`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertLineage(t, tt.sql, tt.want)
		})
	}
}

func TestCreateLineage(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want string
	}{
		{
			name: "view",
			sql: `CREATE VIEW simple_view AS
SELECT * FROM source_table`,
			want: `
lineage:
  simple_view: [source_table]
sources: [source_table]`,
		},
		{
			name: "or replace view",
			sql: `CREATE OR REPLACE VIEW simple_view AS
SELECT * FROM source_table`,
			want: `
lineage:
  simple_view: [source_table]
sources: [source_table]`,
		},
		{
			name: "qualified names",
			sql: `CREATE VIEW analytics.weather_summary AS
SELECT * FROM climate_data.temperature_readings`,
			want: `
lineage:
  analytics.weather_summary: [climate_data.temperature_readings]
sources: [climate_data.temperature_readings]`,
		},
		{
			name: "group by expression",
			sql: `CREATE OR REPLACE VIEW analytics.weather_summary AS
SELECT
    date_trunc('month', measurement_date) as month,
    avg(temperature) as avg_temp,
    count(*) as measurement_count
FROM climate_data.temperature_readings
WHERE measurement_date >= '2023-01-01'
GROUP BY date_trunc('month', measurement_date)`,
			want: `
lineage:
  analytics.weather_summary: [climate_data.temperature_readings]
sources: [climate_data.temperature_readings]`,
		},
		{
			name: "joins",
			sql: `CREATE OR REPLACE VIEW sales_summary AS
SELECT
    c.customer_name,
    p.product_name,
    SUM(oi.quantity * oi.unit_price) as total_sales
FROM customers c
JOIN orders o ON c.customer_id = o.customer_id
JOIN order_items oi ON o.order_id = oi.order_id
JOIN products p ON oi.product_id = p.product_id
GROUP BY c.customer_name, p.product_name`,
			want: `
lineage:
  sales_summary: [customers, orders, order_items, products]
sources: [customers, orders, order_items, products]`,
		},
		{
			name: "where subquery",
			sql: `CREATE VIEW high_value_customers AS
SELECT customer_id, customer_name
FROM customers
WHERE customer_id IN (
    SELECT customer_id
    FROM orders
    WHERE order_total > 1000
)`,
			want: `
lineage:
  high_value_customers: [customers, orders]
sources: [customers, orders]`,
		},
		{
			name: "ctes",
			sql: `CREATE OR REPLACE VIEW customer_analytics AS
WITH customer_totals AS (
    SELECT customer_id, SUM(order_total) as total_spent
    FROM orders
    GROUP BY customer_id
),
customer_details AS (
    SELECT
        c.customer_id,
        c.customer_name,
        ct.total_spent
    FROM customers c
    JOIN customer_totals ct ON c.customer_id = ct.customer_id
)
SELECT customer_id, customer_name, total_spent
FROM customer_details
WHERE total_spent > 5000`,
			want: `
lineage:
  customer_analytics: [orders, customers]
sources: [orders, customers]`,
		},
		{
			name: "union",
			sql: `CREATE VIEW all_transactions AS
SELECT transaction_id, amount, 'sales' as type
FROM sales_transactions
UNION ALL
SELECT transaction_id, amount, 'returns' as type
FROM return_transactions`,
			want: `
lineage:
  all_transactions: [sales_transactions, return_transactions]
sources: [sales_transactions, return_transactions]`,
		},
		{
			name: "materialized view",
			sql:  `CREATE MATERIALIZED VIEW mv AUTO REFRESH YES AS SELECT * FROM events`,
			want: `
lineage:
  mv: [events]
sources: [events]`,
		},
		{
			name: "create table as",
			sql:  `CREATE TEMP TABLE stage DISTKEY(id) AS SELECT id FROM raw.events`,
			want: `
lineage:
  stage: [raw.events]
sources: [raw.events]`,
		},
		{
			name: "create table as keeps nested into",
			sql:  `CREATE TABLE t2 AS SELECT a INTO t3 FROM t1`,
			want: `
lineage:
  t2: [t1]
  t3: [t1]
sources: [t1]`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertLineage(t, tt.sql, tt.want)
		})
	}
}

func TestAlterRenameLineage(t *testing.T) {
	assertLineage(t, `ALTER TABLE users RENAME TO new_users;`, `
lineage:
  new_users: [users]
sources: [users]`)

	assertLineage(t, `ALTER TABLE analytics.users RENAME TO new_users;`, `
lineage:
  analytics.new_users: [analytics.users]
sources: [analytics.users]`)
}

func TestExpressionLineage(t *testing.T) {
	assertLineage(t, `SELECT
    EXTRACT('year' FROM birth_date) AS birth_year
INTO birth_years
FROM users WHERE age > 18;`, `
lineage:
  birth_years: [users]
sources: [users]`)

	assertLineage(t, `SELECT
    EXTRACT('year' FROM (SELECT birth_date FROM birth_dates WHERE user_id = u.id)) AS birth_year
INTO birth_years
FROM users AS u
WHERE age > 18;`, `
lineage:
  birth_years: [users, birth_dates]
sources: [users, birth_dates]`)

	assertLineage(t, `SELECT id FROM t WHERE x > ANY (SELECT y FROM q) AND CASE WHEN z THEN (SELECT 1 FROM r) END = 1;`, `
lineage: {}
sources: [t, q, r]`)
}

func TestStatementsWithoutLineage(t *testing.T) {
	assertLineage(t, `DROP TABLE IF EXISTS a, b CASCADE;`, `
lineage: {}
sources: []`)
	assertLineage(t, `CREATE TABLE t (id int, name varchar(10)) DISTSTYLE ALL;`, `
lineage: {}
sources: []`)
}

func TestScriptAggregatesStatements(t *testing.T) {
	sql := "INSERT INTO departures SELECT * FROM schedule;\n" +
		"SELECT * INTO delayed_trains FROM departures JOIN delay_status ON departures.id = delay_status.id;"
	assertLineage(t, sql, `
lineage:
  departures: [schedule]
  delayed_trains: [departures, delay_status]
sources: [schedule, departures, delay_status]`)
}

func TestStatementPositions(t *testing.T) {
	stmts := parse(t, "SELECT a FROM t1;\nINSERT INTO t3 SELECT b FROM t2;")
	require.Len(t, stmts, 2)
	ex := lineage.NewExtractor()

	first := ex.Statement(stmts[0])
	require.NotNil(t, first.Position())
	assert.Equal(t, lineage.SourcePosition{
		Start: lineage.TextPosition{Line: 1, PositionInLine: 0},
		Stop:  lineage.TextPosition{Line: 1, PositionInLine: 16},
	}, *first.Position())
	assert.Nil(t, first.Context.SourceName)

	second := ex.Statement(stmts[1])
	require.NotNil(t, second.Position())
	assert.Equal(t, lineage.TextPosition{Line: 2, PositionInLine: 0}, second.Position().Start)
	assert.Equal(t, lineage.TextPosition{Line: 2, PositionInLine: 31}, second.Position().Stop)

	all := ex.Script(stmts)
	require.NotNil(t, all.Position())
	assert.Equal(t, lineage.SourcePosition{
		Start: lineage.TextPosition{Line: 1, PositionInLine: 0},
		Stop:  lineage.TextPosition{Line: 2, PositionInLine: 31},
	}, *all.Position())
	assert.Nil(t, all.Context.SourceName)
}

func TestScriptEmpty(t *testing.T) {
	info := lineage.NewExtractor().Script(nil)
	assert.True(t, info.IsEmpty())
	assert.Nil(t, info.Context)
}

func TestStatementNil(t *testing.T) {
	info := lineage.NewExtractor().Statement(nil)
	assert.True(t, info.IsEmpty())
}

func TestCTEChainHidesIntermediateNames(t *testing.T) {
	stmts := parse(t, `WITH a AS (SELECT * FROM base_a),
b AS (SELECT * FROM a JOIN base_b ON a.id = base_b.id),
c AS (SELECT * FROM b)
INSERT INTO out SELECT * FROM c;`)
	got := lineage.NewExtractor().Statement(stmts[0])

	assert.Equal(t, []string{"out"}, got.Sinks())
	assert.Equal(t, []string{"base_a", "base_b"}, got.Lineage["out"].Sorted())
	assert.Equal(t, []string{"base_a", "base_b"}, got.Sources.Sorted())
}
