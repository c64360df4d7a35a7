// Package testutil provides testing utilities for refinery
package testutil

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/refinery/pkg/columnar"
)

// TestLogger creates a test logger that writes to the test output.
// The logger is automatically cleaned up when the test completes.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a test context with a 30-second timeout.
// The caller must call the returned cancel function to avoid leaks.
func TestContext(_ *testing.T) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

// AssertEventually asserts that a condition becomes true within the specified timeout.
// It checks the condition every 10ms until it succeeds or the timeout expires.
func AssertEventually(t *testing.T, condition func() bool, timeout time.Duration, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("condition not met within %v: %s", timeout, msg)
}

// Table builds a table from columns and fails the test on error.
func Table(t *testing.T, cols ...*columnar.Column) *columnar.Table {
	t.Helper()
	tbl, err := columnar.New(cols...)
	if err != nil {
		t.Fatalf("build table: %v", err)
	}
	return tbl
}

// CustomerTable is a small mixed-type table with missing cells, one exact
// duplicate row (rows 0 and 1), a constant column and an outlier in income.
//
//	id  age  income  city    plan   source  churn
//	1   34   52000   Berlin  basic  web     no
//	1   34   52000   Berlin  basic  web     no
//	2   NaN  48000   Paris   pro    web     no
//	3   45   51000   NA      basic  web     yes
//	4   29   950000  Berlin  pro    web     no
//	5   51   NaN     Madrid  basic  web     yes
func CustomerTable(t *testing.T) *columnar.Table {
	t.Helper()
	nan := nan()
	return columnar.NormalizeTable(Table(t,
		columnar.Numeric("id", 1, 1, 2, 3, 4, 5),
		columnar.Numeric("age", 34, 34, nan, 45, 29, 51),
		columnar.Numeric("income", 52000, 52000, 48000, 51000, 950000, nan),
		columnar.Categorical("city", "Berlin", "Berlin", "Paris", "NA", "Berlin", "Madrid"),
		columnar.Categorical("plan", "basic", "basic", "pro", "basic", "pro", "basic"),
		columnar.Categorical("source", "web", "web", "web", "web", "web", "web"),
		columnar.Categorical("churn", "no", "no", "no", "yes", "no", "yes"),
	))
}

// ImbalancedTable returns a two-class table with majority rows labelled
// "no" and minority rows labelled "yes", plus two numeric features.
func ImbalancedTable(t *testing.T, majority, minority int) *columnar.Table {
	t.Helper()
	n := majority + minority
	x1 := make([]float64, n)
	x2 := make([]float64, n)
	label := make([]string, n)
	for i := 0; i < n; i++ {
		x1[i], x2[i], label[i] = float64(i), float64(i%7), "no"
		if i >= majority {
			x1[i], label[i] = float64(1000+i), "yes"
		}
	}
	return Table(t,
		columnar.Numeric("x1", x1...),
		columnar.Numeric("x2", x2...),
		columnar.Categorical("label", label...),
	)
}
