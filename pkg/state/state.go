// Package state provides persistent per-channel run records for releasectl
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/releasekit/releasectl/pkg/fsutil"
	"github.com/releasekit/releasectl/pkg/logger"
	"github.com/releasekit/releasectl/pkg/types"
)

// ChannelState represents the persistent record of a channel
type ChannelState struct {
	Channel          string              `json:"channel"`
	Status           types.ChannelStatus `json:"status"`
	LastCleaned      time.Time           `json:"lastCleaned,omitempty"`
	LastExported     time.Time           `json:"lastExported,omitempty"`
	LastPublished    time.Time           `json:"lastPublished,omitempty"`
	PublishedVersion string              `json:"publishedVersion,omitempty"`
	ExportCount      int                 `json:"exportCount"`
	PublishCount     int                 `json:"publishCount"`
	FailureCount     int                 `json:"failureCount"`
	LastError        string              `json:"lastError,omitempty"`
	LastDuration     time.Duration       `json:"lastDuration,omitempty"`
	InvocationID     string              `json:"invocationId,omitempty"`
}

// Manager handles channel record files
type Manager struct {
	stateDir string
	logger   logger.Logger
	mu       sync.Mutex
	states   map[string]*ChannelState
}

// NewManager creates a state manager storing records in stateDir
func NewManager(stateDir string, log logger.Logger) *Manager {
	if log == nil {
		log = logger.Discard()
	}
	return &Manager{
		stateDir: stateDir,
		logger:   log,
		states:   make(map[string]*ChannelState),
	}
}

// Read returns the record for a channel. A channel without a record is idle.
func (m *Manager) Read(channel string) (*ChannelState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, err := m.load(channel)
	if err != nil {
		return nil, err
	}
	copied := *st
	return &copied, nil
}

// MarkCleaned records a successful clean
func (m *Manager) MarkCleaned(channel, invocationID string) error {
	return m.update(channel, invocationID, func(st *ChannelState) {
		st.Status = types.ChannelStatusCleaned
		st.LastCleaned = time.Now()
		st.LastError = ""
	})
}

// MarkExported records a successful export
func (m *Manager) MarkExported(channel, invocationID string, duration time.Duration) error {
	return m.update(channel, invocationID, func(st *ChannelState) {
		st.Status = types.ChannelStatusExported
		st.LastExported = time.Now()
		st.ExportCount++
		st.LastDuration = duration
		st.LastError = ""
	})
}

// MarkPublished records a successful upload of version
func (m *Manager) MarkPublished(channel, invocationID, version string, duration time.Duration) error {
	return m.update(channel, invocationID, func(st *ChannelState) {
		st.Status = types.ChannelStatusPublished
		st.LastPublished = time.Now()
		st.PublishedVersion = version
		st.PublishCount++
		st.LastDuration = duration
		st.LastError = ""
	})
}

// MarkFailed records a failed step
func (m *Manager) MarkFailed(channel, invocationID string, cause error) error {
	return m.update(channel, invocationID, func(st *ChannelState) {
		st.Status = types.ChannelStatusFailed
		st.FailureCount++
		if cause != nil {
			st.LastError = cause.Error()
		}
	})
}

// Discover loads every record in the state directory, sorted by channel.
// Unreadable records are logged and skipped.
func (m *Manager) Discover() ([]*ChannelState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	files, err := os.ReadDir(m.stateDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read state directory: %w", err)
	}

	var states []*ChannelState
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}

		channel := strings.TrimSuffix(file.Name(), ".json")
		st, err := m.loadFile(channel)
		if err != nil {
			m.logger.Warn("Failed to load state file",
				logger.WithField("channel", channel),
				logger.WithError(err))
			continue
		}
		copied := *st
		states = append(states, &copied)
	}

	sort.Slice(states, func(i, j int) bool { return states[i].Channel < states[j].Channel })
	return states, nil
}

// Remove deletes the record for a channel
func (m *Manager) Remove(channel string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.states, channel)
	if err := os.Remove(m.path(channel)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove state file: %w", err)
	}
	return nil
}

func (m *Manager) update(channel, invocationID string, apply func(*ChannelState)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, err := m.load(channel)
	if err != nil {
		// A corrupt record is replaced rather than blocking the pipeline
		m.logger.Warn("Replacing unreadable state file",
			logger.WithField("channel", channel),
			logger.WithError(err))
		st = &ChannelState{Channel: channel, Status: types.ChannelStatusIdle}
	}

	apply(st)
	st.InvocationID = invocationID
	m.states[channel] = st

	return m.save(st)
}

func (m *Manager) load(channel string) (*ChannelState, error) {
	if st, ok := m.states[channel]; ok {
		return st, nil
	}

	st, err := m.loadFile(channel)
	if err != nil {
		if os.IsNotExist(err) {
			st = &ChannelState{Channel: channel, Status: types.ChannelStatusIdle}
		} else {
			return nil, err
		}
	}

	m.states[channel] = st
	return st, nil
}

func (m *Manager) path(channel string) string {
	return filepath.Join(m.stateDir, channel+".json")
}

func (m *Manager) loadFile(channel string) (*ChannelState, error) {
	data, err := os.ReadFile(m.path(channel))
	if err != nil {
		return nil, err
	}

	var st ChannelState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}
	if st.Channel == "" {
		st.Channel = channel
	}

	return &st, nil
}

func (m *Manager) save(st *ChannelState) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := fsutil.WriteFileAtomic(m.path(st.Channel), data, 0o644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}
