package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-futures/internal/logger"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
	"go.uber.org/zap"
)

var (
	runPattern  = regexp.MustCompile(`^run_(\d+)$`)
	datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// SessionManager owns the folder of one bot run:
//
//	{dataPath}/{YYYY-MM-DD}/run_N/
type SessionManager struct {
	dataPath       string
	runID          string
	runNumber      int
	sessionStart   time.Time
	currentRunPath string
	mu             sync.Mutex
	log            *logger.Logger
	now            func() time.Time
}

// NewSessionManager creates a session manager rooted at dataPath.
func NewSessionManager(dataPath string, log *logger.Logger) *SessionManager {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &SessionManager{
		dataPath:       dataPath,
		runID:          "",
		runNumber:      0,
		sessionStart:   time.Time{},
		currentRunPath: "",
		mu:             sync.Mutex{},
		log:            log,
		now:            time.Now,
	}
}

// Initialize picks the next run number for today and creates its folder.
func (s *SessionManager) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessionStart = s.now()
	date := s.sessionStart.Format("2006-01-02")

	runNumber, err := s.nextRunNumber(date)
	if err != nil {
		return err
	}

	s.runNumber = runNumber
	s.runID = fmt.Sprintf("run_%d", runNumber)
	s.currentRunPath = filepath.Join(s.dataPath, date, s.runID)

	if err := os.MkdirAll(s.currentRunPath, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeJournalWriteFailed, "failed to create run folder", err)
	}

	s.log.Info("Session initialized",
		zap.String("run_id", s.runID),
		zap.String("date", date),
		zap.String("path", s.currentRunPath),
	)

	return nil
}

//nolint:funcorder // helper method used by Initialize
func (s *SessionManager) nextRunNumber(date string) (int, error) {
	runs, err := listRuns(filepath.Join(s.dataPath, date))
	if err != nil {
		return 0, err
	}

	if len(runs) == 0 {
		return 1, nil
	}

	last, _ := strconv.Atoi(runPattern.FindStringSubmatch(runs[len(runs)-1])[1])

	return last + 1, nil
}

// RunPath returns the folder of the current run.
func (s *SessionManager) RunPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.currentRunPath
}

// RunID returns the run folder name, e.g. run_1.
func (s *SessionManager) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.runID
}

// DataPath returns the base data path.
func (s *SessionManager) DataPath() string {
	return s.dataPath
}

// FilePath returns the path of filename inside the current run folder.
func (s *SessionManager) FilePath(filename string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return filepath.Join(s.currentRunPath, filename)
}

// ListSessionsForDate returns the run folders of date ordered by run number.
func (s *SessionManager) ListSessionsForDate(date string) ([]string, error) {
	return listRuns(filepath.Join(s.dataPath, date))
}

// GetAllDates returns all dates with session data.
func (s *SessionManager) GetAllDates() ([]string, error) {
	entries, err := os.ReadDir(s.dataPath)
	if os.IsNotExist(err) {
		return []string{}, nil
	}

	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeJournalNotReady, "failed to read data directory", err)
	}

	dates := make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() && datePattern.MatchString(entry.Name()) {
			dates = append(dates, entry.Name())
		}
	}

	sort.Strings(dates)

	return dates, nil
}

func listRuns(datePath string) ([]string, error) {
	entries, err := os.ReadDir(datePath)
	if os.IsNotExist(err) {
		return []string{}, nil
	}

	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeJournalNotReady, "failed to read date directory", err)
	}

	runs := make([]string, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() && runPattern.MatchString(entry.Name()) {
			runs = append(runs, entry.Name())
		}
	}

	sort.Slice(runs, func(i, j int) bool {
		numI, _ := strconv.Atoi(runs[i][len("run_"):])
		numJ, _ := strconv.Atoi(runs[j][len("run_"):])

		return numI < numJ
	})

	return runs, nil
}
