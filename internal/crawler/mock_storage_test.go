package crawler

import (
	"sync"
)

// MockStorage is an in-memory frontier implementing Storage for testing
type MockStorage struct {
	mu      sync.Mutex
	nextID  int
	order   []string
	ids     map[string]int
	status  map[string]string
	records map[string]*PageRecord
	errors  map[string]string
	links   []*LinkData
	robots  []*RobotsRecord
	meta    map[string]string
	resets  int
	saveErr error // Returned by SaveAdmission and SavePageError when set
}

func NewMockStorage() *MockStorage {
	m := &MockStorage{}
	m.clear()
	return m
}

func (m *MockStorage) clear() {
	m.nextID = 0
	m.order = nil
	m.ids = make(map[string]int)
	m.status = make(map[string]string)
	m.records = make(map[string]*PageRecord)
	m.errors = make(map[string]string)
	m.links = nil
	m.robots = nil
	m.meta = make(map[string]string)
}

func (m *MockStorage) urlByID(id int) string {
	for u, i := range m.ids {
		if i == id {
			return u
		}
	}
	return ""
}

func (m *MockStorage) AddToQueue(urls []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range urls {
		if _, ok := m.ids[u]; ok {
			continue
		}
		m.nextID++
		m.ids[u] = m.nextID
		m.status[u] = StatusQueued
		m.order = append(m.order, u)
	}
	return nil
}

func (m *MockStorage) GetNextFromQueue() (*URLItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.order {
		if m.status[u] == StatusQueued {
			m.status[u] = StatusProcessing
			return &URLItem{ID: m.ids[u], URL: u}, nil
		}
	}
	return nil, nil
}

func (m *MockStorage) SaveAdmission(id int, page *PageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	u := m.urlByID(id)
	if page.Admitted {
		m.status[u] = StatusAdmitted
	} else {
		m.status[u] = StatusRejected
	}
	m.records[u] = page
	return nil
}

func (m *MockStorage) SavePageError(id int, errorType, errorMessage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	u := m.urlByID(id)
	m.status[u] = StatusError
	m.errors[u] = errorType + ": " + errorMessage
	return nil
}

func (m *MockStorage) SaveLinks(links []*LinkData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = append(m.links, links...)
	return nil
}

func (m *MockStorage) SaveRobots(record *RobotsRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.robots = append(m.robots, record)
	return nil
}

func (m *MockStorage) GetQueueStatus() (QueueStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var qs QueueStatus
	for _, s := range m.status {
		switch s {
		case StatusQueued:
			qs.Queued++
		case StatusProcessing:
			qs.Processing++
		case StatusAdmitted:
			qs.Admitted++
		case StatusRejected:
			qs.Rejected++
		case StatusError:
			qs.Errors++
		}
	}
	return qs, nil
}

func (m *MockStorage) HasQueuedItems() (bool, error) {
	qs, err := m.GetQueueStatus()
	return qs.Pending() > 0, err
}

func (m *MockStorage) Meta(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.meta[key]
}

func (m *MockStorage) SetMeta(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meta[key] = value
	return nil
}

func (m *MockStorage) Status(url string) (status string, exists bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	status, exists = m.status[url]
	return status, exists
}

func (m *MockStorage) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clear()
	m.resets++
	return nil
}

func (m *MockStorage) Close() error {
	return nil
}

func (m *MockStorage) Robots() []*RobotsRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*RobotsRecord(nil), m.robots...)
}

func (m *MockStorage) Record(url string) *PageRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[url]
}

func (m *MockStorage) Error(url string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[url]
}
