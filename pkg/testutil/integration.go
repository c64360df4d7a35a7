package testutil

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// IntegrationTestSuite provides base functionality for tests that touch the
// file system, such as ingestion and export round trips.
type IntegrationTestSuite struct {
	suite.Suite
	ctx       context.Context
	cancel    context.CancelFunc
	tempDir   string
	startTime time.Time
}

// SetupSuite runs before all tests in the suite
func (s *IntegrationTestSuite) SetupSuite() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 5*time.Minute)
	s.startTime = time.Now()

	tempDir, err := os.MkdirTemp("", "refinery-test-*")
	require.NoError(s.T(), err)
	s.tempDir = tempDir
}

// TearDownSuite runs after all tests in the suite
func (s *IntegrationTestSuite) TearDownSuite() {
	s.cancel()
	if s.tempDir != "" {
		os.RemoveAll(s.tempDir)
	}
	s.T().Logf("suite completed in %v", time.Since(s.startTime))
}

// Context returns the test context
func (s *IntegrationTestSuite) Context() context.Context {
	return s.ctx
}

// TempDir returns the temporary directory path
func (s *IntegrationTestSuite) TempDir() string {
	return s.tempDir
}

// CreateTempFile creates a temporary file with content
func (s *IntegrationTestSuite) CreateTempFile(name string, content []byte) string {
	path := filepath.Join(s.tempDir, name)
	err := os.WriteFile(path, content, 0o644)
	require.NoError(s.T(), err)
	return path
}

// IntegrationTest marks a test as an integration test
func IntegrationTest(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// CustomerCSV is CustomerTable rendered as CSV text.
const CustomerCSV = `id,age,income,city,plan,source,churn
1,34,52000,Berlin,basic,web,no
1,34,52000,Berlin,basic,web,no
2,,48000,Paris,pro,web,no
3,45,51000,NA,basic,web,yes
4,29,950000,Berlin,pro,web,no
5,51,null,Madrid,basic,web,yes
`

// CreateTestData writes a CSV file of rows generated records with a numeric
// feature, a categorical feature and a binary label, and returns its path.
func CreateTestData(t *testing.T, dir string, rows int) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("id,value,segment,label\n")
	for i := 0; i < rows; i++ {
		label := "a"
		if i%5 == 0 {
			label = "b"
		}
		fmt.Fprintf(&b, "%d,%.2f,seg_%d,%s\n", i, float64(i)*1.25, i%3, label)
	}

	path := filepath.Join(dir, fmt.Sprintf("test_data_%d.csv", rows))
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func nan() float64 { return math.NaN() }
