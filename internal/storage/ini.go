package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/ini.v1"

	"dutyroster/internal/roster"
	logx "dutyroster/pkg/logx"
)

// INI layout of duty_config.ini.
const (
	sectionDuty   = "duty"
	sectionDate   = "date"
	sectionOrigin = "origin"

	keyIndex1     = "index1"
	keyIndex2     = "index2"
	keyLastUpdate = "lastUpdate"
)

// iniStore keeps state in an INI file and appends audit rows to
// <base>.audit.jsonl in the same directory.
type iniStore struct {
	log logx.Logger

	mu        sync.Mutex
	path      string
	auditPath string
	auditFile *os.File
}

func openINI(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	auditPath := filepath.Join(dir, base+".audit.jsonl")

	af, err := os.OpenFile(auditPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	return &iniStore{log: log, path: path, auditPath: auditPath, auditFile: af}, nil
}

func (s *iniStore) Load(ctx context.Context) (roster.State, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		return roster.DefaultState(), false, nil
	}
	f, err := ini.Load(s.path)
	if err != nil {
		// Unreadable content falls back to defaults; the next save rewrites it.
		s.log.Warn("state file unreadable; using defaults", logx.String("path", s.path), logx.Err(err))
		return roster.DefaultState(), false, nil
	}
	def := roster.DefaultState()
	st := roster.State{
		Index1:     f.Section(sectionDuty).Key(keyIndex1).MustInt(def.Index1),
		Index2:     f.Section(sectionDuty).Key(keyIndex2).MustInt(def.Index2),
		LastUpdate: strings.TrimSpace(f.Section(sectionDate).Key(keyLastUpdate).String()),
		Origin1:    f.Section(sectionOrigin).Key(keyIndex1).MustInt(def.Origin1),
		Origin2:    f.Section(sectionOrigin).Key(keyIndex2).MustInt(def.Origin2),
	}
	return st, true, nil
}

func (s *iniStore) Save(ctx context.Context, st roster.State) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	// Keep any sections/keys we don't own.
	f, err := ini.LooseLoad(s.path)
	if err != nil {
		f = ini.Empty()
	}
	f.Section(sectionDuty).Key(keyIndex1).SetValue(strconv.Itoa(st.Index1))
	f.Section(sectionDuty).Key(keyIndex2).SetValue(strconv.Itoa(st.Index2))
	f.Section(sectionDate).Key(keyLastUpdate).SetValue(st.LastUpdate)
	f.Section(sectionOrigin).Key(keyIndex1).SetValue(strconv.Itoa(st.Origin1))
	f.Section(sectionOrigin).Key(keyIndex2).SetValue(strconv.Itoa(st.Origin2))

	tmp := s.path + ".tmp"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteTo(out); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write state: %w", err)
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *iniStore) AppendAudit(ctx context.Context, e AuditEntry) error {
	_ = ctx
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auditFile == nil {
		return ErrClosed
	}
	return json.NewEncoder(s.auditFile).Encode(e)
}

func (s *iniStore) RecentAudit(ctx context.Context, n int) ([]AuditEntry, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.auditPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []AuditEntry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e AuditEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			continue
		}
		out = append(out, e)
		if n > 0 && len(out) > n {
			out = out[1:]
		}
	}
	return out, sc.Err()
}

func (s *iniStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auditFile == nil {
		return nil
	}
	err := s.auditFile.Close()
	s.auditFile = nil
	return err
}
