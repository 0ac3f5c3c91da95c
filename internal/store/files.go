package store

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/baxromumarov/job-harvester/internal/core"
	"github.com/baxromumarov/job-harvester/internal/scraper"
	"github.com/baxromumarov/job-harvester/internal/urlutil"
)

// LinkFile writes one URL per line, flushing after each write.
type LinkFile struct {
	mu sync.Mutex
	f  *os.File
	w  *bufio.Writer
}

func CreateLinkFile(path string) (*LinkFile, error) {
	f, err := create(path)
	if err != nil {
		return nil, err
	}
	return &LinkFile{f: f, w: bufio.NewWriter(f)}, nil
}

func (l *LinkFile) WriteLink(_ context.Context, link scraper.JobLink) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, err := l.w.WriteString(string(link) + "\n"); err != nil {
		return err
	}
	return l.w.Flush()
}

func (l *LinkFile) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return errors.Join(l.w.Flush(), l.f.Close())
}

// RecordFile writes JSON Lines, one record per line.
type RecordFile struct {
	mu  sync.Mutex
	f   *os.File
	w   *bufio.Writer
	enc *json.Encoder
}

func CreateRecordFile(path string) (*RecordFile, error) {
	f, err := create(path)
	if err != nil {
		return nil, err
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &RecordFile{f: f, w: w, enc: enc}, nil
}

func (r *RecordFile) WriteRecord(_ context.Context, rec scraper.JobRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enc.Encode(rec); err != nil {
		return err
	}
	return r.w.Flush()
}

func (r *RecordFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return errors.Join(r.w.Flush(), r.f.Close())
}

// ReadLinkFile loads a link file, skipping blank lines and repeated postings.
func ReadLinkFile(path string) ([]scraper.JobLink, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open link file: %w", err)
	}
	defer f.Close()

	var links []scraper.JobLink
	seen := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		key, err := urlutil.Normalize(line)
		if err != nil {
			key = line
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		links = append(links, scraper.JobLink(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read link file: %w", err)
	}
	return links, nil
}

// FileOutput places run streams under Dir as <name>.txt and <name>.json.
type FileOutput struct {
	Dir string
}

func (o FileOutput) LinksPath(name string) string {
	return filepath.Join(o.Dir, name+".txt")
}

func (o FileOutput) RecordsPath(name string) string {
	return filepath.Join(o.Dir, name+".json")
}

func (o FileOutput) OpenLinks(name string) (core.LinkSinkCloser, error) {
	f, err := CreateLinkFile(o.LinksPath(name))
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (o FileOutput) OpenRecords(name string) (core.RecordSinkCloser, error) {
	f, err := CreateRecordFile(o.RecordsPath(name))
	if err != nil {
		return nil, err
	}
	return f, nil
}

func create(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output file: %w", err)
	}
	return f, nil
}
