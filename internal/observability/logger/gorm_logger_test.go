package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescribeSQL(t *testing.T) {
	cases := []struct {
		sql   string
		op    string
		table string
	}{
		{`SELECT * FROM "payment_orders" WHERE recipient_id = $1`, "SELECT", "payment_orders"},
		{`INSERT INTO "audit_hendelser" ("id") VALUES ($1)`, "INSERT", "audit_hendelser"},
		{`UPDATE "repayment_cases" SET "version"=$1 WHERE id = $2`, "UPDATE", "repayment_cases"},
		{`WITH x AS (SELECT 1) SELECT * FROM x`, "SELECT", "x"},
		{``, "UNKNOWN", ""},
	}
	for _, tc := range cases {
		op, table := describeSQL(tc.sql)
		assert.Equal(t, tc.op, op, tc.sql)
		assert.Equal(t, tc.table, table, tc.sql)
	}
}

func TestParamsFilterDropsValues(t *testing.T) {
	l := NewGormLogger(DefaultGormLoggerConfig())
	sql, params := l.ParamsFilter(context.Background(), "SELECT 1 WHERE a = ?", "01019012345")
	assert.Equal(t, "SELECT 1 WHERE a = ?", sql)
	assert.Nil(t, params)
}
