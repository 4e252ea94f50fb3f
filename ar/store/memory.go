// Package store provides an in-memory ar.Store implementation (tests/dev).
package store

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/warp/tuition-engine/ar"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu       sync.RWMutex
	students map[ar.StudentID]ar.Student
	centers  map[ar.CenterID]ar.Center
	payments map[ar.StudentID][]ar.PaymentEvent
	settings map[string]ar.Setting
	paySeq   int
}

func NewMemory() *Memory {
	return &Memory{
		students: make(map[ar.StudentID]ar.Student),
		centers:  make(map[ar.CenterID]ar.Center),
		payments: make(map[ar.StudentID][]ar.PaymentEvent),
		settings: make(map[string]ar.Setting),
	}
}

// =============================================================================
// PAYMENTS - Append-only
// =============================================================================

// AppendPayment records a payment event. Append-only: there is no update
// and no delete anywhere on this store.
func (m *Memory) AppendPayment(_ context.Context, p ar.PaymentEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.paySeq++
	if p.ID == "" {
		p.ID = "pay-" + strconv.Itoa(m.paySeq)
	}

	events := m.payments[p.StudentID]

	// Keep events ordered by payment date; insertion point via binary search.
	i := sort.Search(len(events), func(i int) bool {
		return events[i].PaymentDate.After(p.PaymentDate)
	})
	events = append(events, ar.PaymentEvent{})
	copy(events[i+1:], events[i:])
	events[i] = p
	m.payments[p.StudentID] = events
	return nil
}

func (m *Memory) PaymentsForStudent(_ context.Context, id ar.StudentID) ([]ar.PaymentEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]ar.PaymentEvent, len(m.payments[id]))
	copy(result, m.payments[id])
	return result, nil
}

func (m *Memory) ListPayments(_ context.Context, f ar.PaymentFilter) ([]ar.PaymentEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []ar.PaymentEvent
	for studentID, events := range m.payments {
		if f.StudentID != "" && studentID != f.StudentID {
			continue
		}
		if f.CenterID != ar.CenterAll {
			s, ok := m.students[studentID]
			if !ok || s.CenterID != f.CenterID {
				continue
			}
		}
		for _, p := range events {
			if !f.From.IsZero() && p.PaymentDate.Before(f.From) {
				continue
			}
			if !f.To.IsZero() && p.PaymentDate.After(f.To) {
				continue
			}
			result = append(result, p)
		}
	}

	// Newest first, matching the SQL stores.
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].PaymentDate.After(result[j].PaymentDate)
	})
	return result, nil
}

// =============================================================================
// STUDENTS
// =============================================================================

func (m *Memory) GetStudent(_ context.Context, id ar.StudentID) (ar.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.students[id]
	if !ok {
		return ar.Student{}, ar.ErrStudentNotFound
	}
	return s, nil
}

func (m *Memory) ListStudents(_ context.Context, f ar.StudentFilter) ([]ar.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []ar.Student
	for _, s := range m.students {
		if f.CenterID != ar.CenterAll && s.CenterID != f.CenterID {
			continue
		}
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		if f.Search != "" && !matchesSearch(s, f.Search) {
			continue
		}
		result = append(result, s)
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].LastName != result[j].LastName {
			return result[i].LastName < result[j].LastName
		}
		return result[i].FirstName < result[j].FirstName
	})
	return result, nil
}

func (m *Memory) SaveStudent(_ context.Context, s ar.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.students[s.ID] = s
	return nil
}

func (m *Memory) UpdateStudent(_ context.Context, s ar.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.students[s.ID]; !ok {
		return ar.ErrStudentNotFound
	}
	m.students[s.ID] = s
	return nil
}

func (m *Memory) DeactivateStudent(_ context.Context, id ar.StudentID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.students[id]
	if !ok {
		return ar.ErrStudentNotFound
	}
	s.Status = ar.StatusInactive
	m.students[id] = s
	return nil
}

func matchesSearch(s ar.Student, q string) bool {
	q = strings.ToLower(q)
	return strings.Contains(strings.ToLower(s.Name()), q) ||
		strings.Contains(strings.ToLower(s.Parent), q) ||
		strings.Contains(s.Contact, q)
}

// =============================================================================
// CENTERS
// =============================================================================

func (m *Memory) GetCenter(_ context.Context, id ar.CenterID) (ar.Center, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.centers[id]
	if !ok {
		return ar.Center{}, ar.ErrCenterNotFound
	}
	return c, nil
}

func (m *Memory) ListCenters(_ context.Context) ([]ar.Center, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]ar.Center, 0, len(m.centers))
	for _, c := range m.centers {
		result = append(result, c)
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (m *Memory) SaveCenter(_ context.Context, c ar.Center) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.centers[c.ID] = c
	return nil
}

// =============================================================================
// SETTINGS
// =============================================================================

func (m *Memory) GetSetting(_ context.Context, key string) (ar.Setting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.settings[key]
	if !ok {
		return ar.Setting{}, ar.ErrSettingNotFound
	}
	return s, nil
}

func (m *Memory) ListSettings(_ context.Context) ([]ar.Setting, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]ar.Setting, 0, len(m.settings))
	for _, s := range m.settings {
		result = append(result, s)
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result, nil
}

func (m *Memory) PutSetting(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.settings[key]
	if !ok {
		return ar.ErrSettingNotFound
	}
	s.Value = value
	m.settings[key] = s
	return nil
}

// SeedSetting inserts a setting directly; provisioning/tests only.
func (m *Memory) SeedSetting(s ar.Setting) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[s.Key] = s
}
