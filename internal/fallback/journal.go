package fallback

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gpuguard/internal/fsutil"
	"gpuguard/internal/logging"
)

// JournalFileName is the JSONL file fallback events are appended to.
const JournalFileName = "fallback_events.jsonl"

// Journal appends fallback events to a JSONL file so that history survives
// between runs.
type Journal struct {
	mu     sync.Mutex
	path   string
	logger *logging.Logger
}

// NewJournal creates a journal writing to path
func NewJournal(path string, logger *logging.Logger) *Journal {
	return &Journal{path: path, logger: logger}
}

// DefaultJournalPath returns the journal location inside the state directory.
func DefaultJournalPath() string {
	return filepath.Join(fsutil.GetStateDir(fsutil.DefaultStateDir), JournalFileName)
}

// Path returns the journal file path
func (j *Journal) Path() string {
	return j.path
}

// Append writes one event as a JSON line
func (j *Journal) Append(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	data = append(data, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()

	if err := fsutil.EnsureStateDirectory(filepath.Dir(j.path)); err != nil {
		return err
	}

	file, err := os.OpenFile(filepath.Clean(j.path), os.O_APPEND|os.O_CREATE|os.O_WRONLY, fsutil.DefaultFilePermissions)
	if err != nil {
		return fmt.Errorf("failed to open fallback journal: %w", err)
	}
	defer fsutil.CloseWithError(file.Close, j.logger, j.path)

	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return nil
}

// Load returns the newest limit events, oldest first. A missing journal is
// empty; lines that do not decode are skipped.
func (j *Journal) Load(limit int) ([]Event, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	file, err := os.Open(filepath.Clean(j.path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open fallback journal: %w", err)
	}
	defer fsutil.CloseWithError(file.Close, j.logger, j.path)

	var events []Event
	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			j.logger.Warn("fallback.journal.skip", "Skipping malformed journal line", map[string]interface{}{
				"line":  line,
				"error": err.Error(),
			})
			continue
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read fallback journal: %w", err)
	}

	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	return events, nil
}
