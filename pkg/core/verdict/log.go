package verdict

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// DetectionLog appends each normalized verdict to a line-oriented JSON file.
// It is the only persistence the detector keeps; the conversation itself is
// never written to disk.
type DetectionLog struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

type detectionRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
	Result    Result    `json:"result"`
}

// OpenDetectionLog opens (or creates) the log file at path for appending.
func OpenDetectionLog(path string) (*DetectionLog, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open detection log %q: %w", path, err)
	}
	return &DetectionLog{file: file, enc: json.NewEncoder(file)}, nil
}

// Record appends one analyzed utterance with its verdict.
func (l *DetectionLog) Record(text string, res Result) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec := detectionRecord{Timestamp: time.Now().UTC(), Text: text, Result: res}
	if err := l.enc.Encode(rec); err != nil {
		return fmt.Errorf("write detection record: %w", err)
	}
	return nil
}

// Close closes the underlying file.
func (l *DetectionLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
