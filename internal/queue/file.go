package queue

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ok-landscape/syndicate/internal/models"
)

const (
	queueFileName   = "posting_queue.json"
	historyFileName = "posting_history.json"
)

// FilePersister stores the queue and posting history as JSON documents in a
// data directory. Suitable for single-instance deployments without a
// database; also what the tests run against.
type FilePersister struct {
	mu  sync.Mutex
	dir string
}

func NewFilePersister(dir string) (*FilePersister, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir %s: %w", dir, err)
	}
	return &FilePersister{dir: dir}, nil
}

func (p *FilePersister) Insert(items []models.QueuedContent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	queue, err := p.readQueue()
	if err != nil {
		return err
	}
	queue = append(queue, items...)
	return p.writeJSON(queueFileName, queue)
}

func (p *FilePersister) Delete(contentID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	queue, err := p.readQueue()
	if err != nil {
		return err
	}
	return p.writeJSON(queueFileName, withoutID(queue, contentID))
}

func (p *FilePersister) UpdateScheduledAt(contentID string, t time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	queue, err := p.readQueue()
	if err != nil {
		return err
	}
	for i := range queue {
		if queue[i].ContentID == contentID {
			queue[i].ScheduledAt = t
		}
	}
	return p.writeJSON(queueFileName, queue)
}

func (p *FilePersister) MarkPosted(contentID string, rec models.PostingHistoryRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	queue, err := p.readQueue()
	if err != nil {
		return err
	}
	history, err := p.readHistory()
	if err != nil {
		return err
	}

	if err := p.writeJSON(historyFileName, append(history, rec)); err != nil {
		return err
	}
	return p.writeJSON(queueFileName, withoutID(queue, contentID))
}

func (p *FilePersister) Load() ([]models.QueuedContent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.readQueue()
}

func (p *FilePersister) History(since time.Time) ([]models.PostingHistoryRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	all, err := p.readHistory()
	if err != nil {
		return nil, err
	}
	recent := make([]models.PostingHistoryRecord, 0, len(all))
	for _, rec := range all {
		if !rec.PostedAt.Before(since) {
			recent = append(recent, rec)
		}
	}
	return recent, nil
}

func (p *FilePersister) readQueue() ([]models.QueuedContent, error) {
	var queue []models.QueuedContent
	if err := p.readJSON(queueFileName, &queue); err != nil {
		return nil, err
	}
	return queue, nil
}

func (p *FilePersister) readHistory() ([]models.PostingHistoryRecord, error) {
	var history []models.PostingHistoryRecord
	if err := p.readJSON(historyFileName, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func (p *FilePersister) readJSON(name string, out interface{}) error {
	path := filepath.Join(p.dir, name)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// writeJSON writes via a temp file and rename so a crash mid-write cannot
// leave a truncated document behind.
func (p *FilePersister) writeJSON(name string, v interface{}) error {
	path := filepath.Join(p.dir, name)
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func withoutID(queue []models.QueuedContent, contentID string) []models.QueuedContent {
	out := queue[:0]
	for _, item := range queue {
		if item.ContentID != contentID {
			out = append(out, item)
		}
	}
	return out
}
