package watcher

import (
	"fmt"
	"os"
	"time"
)

// fileState is what polling compares between scans.
type fileState struct {
	modTime time.Time
	size    int64
}

// dirPoller detects changes in a flat directory by comparing scans.
type dirPoller struct {
	dir   string
	state map[string]fileState
}

func newDirPoller(dir string) (*dirPoller, error) {
	p := &dirPoller{dir: dir}
	state, err := p.scan()
	if err != nil {
		return nil, err
	}
	p.state = state
	return p, nil
}

func (p *dirPoller) scan() (map[string]fileState, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}

	state := make(map[string]fileState, len(entries))
	for _, e := range entries {
		if e.IsDir() || ignored(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		state[e.Name()] = fileState{modTime: info.ModTime(), size: info.Size()}
	}
	return state, nil
}

// changes rescans the directory and returns events since the previous scan.
func (p *dirPoller) changes() ([]FileEvent, error) {
	current, err := p.scan()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var events []FileEvent
	for name, st := range current {
		prev, existed := p.state[name]
		switch {
		case !existed:
			events = append(events, FileEvent{Path: name, Operation: OpCreate, Timestamp: now})
		case prev.modTime != st.modTime || prev.size != st.size:
			events = append(events, FileEvent{Path: name, Operation: OpModify, Timestamp: now})
		}
	}
	for name := range p.state {
		if _, exists := current[name]; !exists {
			events = append(events, FileEvent{Path: name, Operation: OpDelete, Timestamp: now})
		}
	}

	p.state = current
	return events, nil
}
