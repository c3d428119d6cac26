package journal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type SessionManagerTestSuite struct {
	suite.Suite
	dataPath string
	now      time.Time
}

func TestSessionManagerSuite(t *testing.T) {
	suite.Run(t, new(SessionManagerTestSuite))
}

func (suite *SessionManagerTestSuite) SetupTest() {
	suite.dataPath = suite.T().TempDir()
	suite.now = time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)
}

func (suite *SessionManagerTestSuite) newSession() *SessionManager {
	session := NewSessionManager(suite.dataPath, nil)
	session.now = func() time.Time { return suite.now }

	return session
}

func (suite *SessionManagerTestSuite) TestFirstRun() {
	session := suite.newSession()
	suite.Require().NoError(session.Initialize())

	suite.Equal("run_1", session.RunID())
	suite.Equal(filepath.Join(suite.dataPath, "2025-06-01", "run_1"), session.RunPath())
	suite.DirExists(session.RunPath())
	suite.Equal(filepath.Join(session.RunPath(), "x.parquet"), session.FilePath("x.parquet"))
}

func (suite *SessionManagerTestSuite) TestRunNumbersIncrease() {
	for i := 0; i < 2; i++ {
		suite.Require().NoError(suite.newSession().Initialize())
	}

	// Gaps and unrelated folders are ignored.
	suite.Require().NoError(os.MkdirAll(filepath.Join(suite.dataPath, "2025-06-01", "run_10"), 0755))
	suite.Require().NoError(os.MkdirAll(filepath.Join(suite.dataPath, "2025-06-01", "notes"), 0755))

	session := suite.newSession()
	suite.Require().NoError(session.Initialize())
	suite.Equal("run_11", session.RunID())

	runs, err := session.ListSessionsForDate("2025-06-01")
	suite.Require().NoError(err)
	suite.Equal([]string{"run_1", "run_2", "run_10", "run_11"}, runs)
}

func (suite *SessionManagerTestSuite) TestNewDateStartsAtOne() {
	suite.Require().NoError(suite.newSession().Initialize())

	suite.now = suite.now.Add(24 * time.Hour)
	session := suite.newSession()
	suite.Require().NoError(session.Initialize())
	suite.Equal("run_1", session.RunID())

	dates, err := session.GetAllDates()
	suite.Require().NoError(err)
	suite.Equal([]string{"2025-06-01", "2025-06-02"}, dates)
}

func (suite *SessionManagerTestSuite) TestMissingDataPath() {
	session := NewSessionManager(filepath.Join(suite.dataPath, "missing"), nil)

	dates, err := session.GetAllDates()
	suite.Require().NoError(err)
	suite.Empty(dates)

	runs, err := session.ListSessionsForDate("2025-06-01")
	suite.Require().NoError(err)
	suite.Empty(runs)
}
