package promptbuild

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

var auditMu sync.Mutex

// Entry describes one prompt sent to the generative service.
type Entry struct {
	Stage     string
	Key       string
	Attempt   int
	System    string
	User      string
	RequestID string
}

type auditRecord struct {
	Timestamp     string `json:"timestamp"`
	RequestID     string `json:"request_id,omitempty"`
	RequestDigest string `json:"request_digest"`
	Stage         string `json:"stage"`
	Key           string `json:"key"`
	Attempt       int    `json:"attempt"`
	System        string `json:"system,omitempty"`
	FinalPrompt   string `json:"final_prompt"`
}

// Record appends the entry to today's JSONL audit file. It is a no-op when
// auditing is disabled.
func (b *Builder) Record(e Entry) error {
	if b == nil || !b.cfg.AuditEnabled {
		return nil
	}
	return b.writeAuditRecord(e, time.Now())
}

func (b *Builder) writeAuditRecord(e Entry, now time.Time) error {
	auditDir := b.resolvePath(b.cfg.AuditDir)
	if err := os.MkdirAll(auditDir, 0755); err != nil {
		return fmt.Errorf("create audit dir: %w", err)
	}

	fileName := fmt.Sprintf("%s-%s.jsonl", b.auditPrefix(), now.Format("2006-01-02"))
	filePath := filepath.Join(auditDir, fileName)

	record := auditRecord{
		Timestamp:     now.Format(time.RFC3339),
		RequestID:     e.RequestID,
		RequestDigest: entryDigest(e),
		Stage:         e.Stage,
		Key:           e.Key,
		Attempt:       e.Attempt,
		System:        e.System,
		FinalPrompt:   e.User,
	}

	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}

	auditMu.Lock()
	defer auditMu.Unlock()

	return appendJSONL(filePath, line)
}

func appendJSONL(filePath string, line []byte) error {
	f, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open audit file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write audit file: %w", err)
	}
	return nil
}

// CleanupOldAuditFiles removes audit files older than the retention window.
func (b *Builder) CleanupOldAuditFiles() error {
	auditMu.Lock()
	defer auditMu.Unlock()
	return b.cleanupOldAuditFilesWithNow(time.Now())
}

func (b *Builder) cleanupOldAuditFilesWithNow(now time.Time) error {
	if !b.cfg.AuditEnabled || b.cfg.AuditRetentionDays <= 0 {
		return nil
	}

	auditDir := b.resolvePath(b.cfg.AuditDir)
	entries, err := os.ReadDir(auditDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("list audit dir: %w", err)
	}

	prefix := b.auditPrefix()
	cutoff := now.AddDate(0, 0, -b.cfg.AuditRetentionDays)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, prefix+"-") || !strings.HasSuffix(name, ".jsonl") {
			continue
		}

		filePath := filepath.Join(auditDir, name)
		fileDate, ok := parseAuditDate(name, prefix)
		if ok {
			if fileDate.Before(startOfDay(cutoff)) {
				if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("remove old audit file %s: %w", filePath, err)
				}
			}
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return fmt.Errorf("stat audit file %s: %w", filePath, err)
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("remove old audit file %s: %w", filePath, err)
			}
		}
	}

	return nil
}

func (b *Builder) auditPrefix() string {
	prefix := strings.TrimSpace(b.cfg.AuditFilePrefix)
	if prefix == "" {
		prefix = "prompts"
	}
	return prefix
}

func parseAuditDate(filename, prefix string) (time.Time, bool) {
	raw := strings.TrimSuffix(filename, ".jsonl")
	raw = strings.TrimPrefix(raw, prefix+"-")
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func entryDigest(e Entry) string {
	payload, _ := json.Marshal(struct {
		Stage   string `json:"stage"`
		Key     string `json:"key"`
		Attempt int    `json:"attempt"`
		SysLen  int    `json:"system_len"`
		UserLen int    `json:"user_len"`
	}{e.Stage, e.Key, e.Attempt, len(e.System), len(e.User)})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
