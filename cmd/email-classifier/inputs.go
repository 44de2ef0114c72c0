package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	mboxlib "github.com/emersion/go-mbox"

	"github.com/mikey/llm-email-classifier/internal/core"
)

func loadFiles(paths []string) ([]core.BatchItem, error) {
	items := make([]core.BatchItem, 0, len(paths))
	for _, path := range paths {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		items = append(items, core.BatchItem{FileName: filepath.Base(path), Raw: raw})
	}
	return items, nil
}

// loadDir reads the .eml files of dir in name order, skipping offset files
// and keeping at most limit (all when limit is 0). It also returns the number
// of .eml files found.
func loadDir(dir string, offset, limit int) ([]core.BatchItem, int, error) {
	if offset < 0 || limit < 0 {
		return nil, 0, errors.New("offset and limit must not be negative")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0, fmt.Errorf("read directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.EqualFold(filepath.Ext(e.Name()), ".eml") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	total := len(names)

	if offset >= total {
		return nil, total, nil
	}
	names = names[offset:]
	if limit > 0 && limit < len(names) {
		names = names[:limit]
	}

	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(dir, name)
	}
	items, err := loadFiles(paths)
	return items, total, err
}

// loadMbox reads every message of an mbox archive. Messages are named
// "<archive>#<n>" with n starting at 1.
func loadMbox(ctx context.Context, path string) ([]core.BatchItem, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mbox: %w", err)
	}
	defer file.Close()

	base := filepath.Base(path)
	reader := mboxlib.NewReader(file)

	var items []core.BatchItem
	for idx := 1; ; idx++ {
		if ctx != nil {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		msgReader, err := reader.NextMessage()
		if errors.Is(err, io.EOF) {
			return items, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read mbox message %d: %w", idx, err)
		}

		raw, err := io.ReadAll(msgReader)
		if err != nil {
			return nil, fmt.Errorf("read mbox message %d: %w", idx, err)
		}
		items = append(items, core.BatchItem{FileName: fmt.Sprintf("%s#%d", base, idx), Raw: raw})
	}
}
