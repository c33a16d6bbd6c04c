package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/matchodds/internal/domain/match"
	"github.com/riskibarqy/matchodds/internal/platform/logging"
	"github.com/valyala/bytebufferpool"
)

const fileExt = ".json"

var fileNamePattern = regexp.MustCompile(`^(?:\d{8}(?:-\d{4})?|unknown-time)-([^-]+)-`)

// MatchStore keeps one indented JSON document per match in a directory.
type MatchStore struct {
	dir    string
	mu     sync.Mutex
	logger *logging.Logger
}

func NewMatchStore(dir string, logger *logging.Logger) (*MatchStore, error) {
	if logger == nil {
		logger = logging.Default()
	}
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, crerr.New("match json dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, crerr.Wrapf(err, "create match json dir %s", dir)
	}
	return &MatchStore{dir: dir, logger: logger}, nil
}

// Dir returns the directory the documents live in.
func (s *MatchStore) Dir() string {
	return s.dir
}

func (s *MatchStore) Get(_ context.Context, matchID string) (match.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, record, ok, err := s.findLocked(matchID)
	if err != nil {
		return match.Record{}, false, err
	}
	return record, ok, nil
}

func (s *MatchStore) Save(_ context.Context, record match.Record) error {
	if err := record.Validate(); err != nil {
		return crerr.Wrap(err, "validate match record")
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	enc := sonic.ConfigDefault.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(record); err != nil {
		return crerr.Wrapf(err, "encode match %s", record.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous, _, found, err := s.findLocked(record.ID)
	if err != nil {
		return err
	}

	name := match.FileName(record)
	if err := s.writeFileLocked(name, buf.B); err != nil {
		return err
	}
	if found && previous != name {
		if err := os.Remove(filepath.Join(s.dir, previous)); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("remove renamed match file failed", "file", previous, "error", err)
		}
	}
	return nil
}

func (s *MatchStore) List(_ context.Context) ([]match.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.namesLocked()
	if err != nil {
		return nil, err
	}

	out := make([]match.Record, 0, len(names))
	for _, name := range names {
		record, err := s.readLocked(name)
		if err != nil {
			s.logger.Warn("skip unreadable match file", "file", name, "error", err)
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

func (s *MatchStore) ListIDs(ctx context.Context) ([]string, error) {
	records, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(records))
	for _, record := range records {
		out = append(out, record.ID)
	}
	return out, nil
}

func (s *MatchStore) DeleteAll(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.namesLocked()
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, name := range names {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
			return deleted, crerr.Wrapf(err, "remove match file %s", name)
		}
		deleted++
	}
	return deleted, nil
}

func (s *MatchStore) ListFiles(_ context.Context) ([]match.FileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names, err := s.namesLocked()
	if err != nil {
		return nil, err
	}

	out := make([]match.FileInfo, 0, len(names))
	for _, name := range names {
		info, err := os.Stat(filepath.Join(s.dir, name))
		if err != nil {
			continue
		}
		out = append(out, match.FileInfo{
			Name:     name,
			Size:     info.Size(),
			Modified: info.ModTime(),
			MatchID:  MatchIDFromFileName(name),
		})
	}
	return out, nil
}

// MatchIDFromFileName extracts the id segment of a document name.
func MatchIDFromFileName(name string) string {
	m := fileNamePattern.FindStringSubmatch(name)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

func (s *MatchStore) findLocked(matchID string) (string, match.Record, bool, error) {
	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return "", match.Record{}, false, nil
	}

	names, err := s.namesLocked()
	if err != nil {
		return "", match.Record{}, false, err
	}

	marker := "-" + match.SafeFilename(matchID) + "-"
	for _, name := range names {
		if !strings.Contains(name, marker) {
			continue
		}
		record, err := s.readLocked(name)
		if err != nil {
			s.logger.Warn("skip unreadable match file", "file", name, "error", err)
			continue
		}
		if record.ID == matchID {
			return name, record, true, nil
		}
	}
	return "", match.Record{}, false, nil
}

func (s *MatchStore) namesLocked() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, crerr.Wrapf(err, "read match json dir %s", s.dir)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), fileExt) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

func (s *MatchStore) readLocked(name string) (match.Record, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return match.Record{}, crerr.Wrapf(err, "read match file %s", name)
	}

	var record match.Record
	if err := sonic.ConfigDefault.Unmarshal(data, &record); err != nil {
		return match.Record{}, crerr.Wrapf(err, "decode match file %s", name)
	}
	if strings.TrimSpace(record.ID) == "" {
		return match.Record{}, crerr.Newf("match file %s has no id", name)
	}
	return record, nil
}

// writeFileLocked replaces name atomically through a temp file in the same dir.
func (s *MatchStore) writeFileLocked(name string, data []byte) error {
	tmp, err := os.CreateTemp(s.dir, ".match-*.tmp")
	if err != nil {
		return crerr.Wrap(err, "create temp match file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return crerr.Wrapf(err, "write match file %s", name)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return crerr.Wrapf(err, "close match file %s", name)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		_ = os.Remove(tmpName)
		return crerr.Wrapf(err, "rename match file %s", name)
	}
	return nil
}
