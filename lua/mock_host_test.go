package lua

import "sync"

// MockHost implements UIService and SystemService for testing.
type MockHost struct {
	mu sync.Mutex

	// Captured calls
	PrintCalls  []string
	QuitCalled  bool
	ReloadCalls int
	LoadCalls   []string
}

func NewMockHost() *MockHost {
	return &MockHost{}
}

func (m *MockHost) Print(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PrintCalls = append(m.PrintCalls, text)
}

func (m *MockHost) Quit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.QuitCalled = true
}

func (m *MockHost) Reload() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReloadCalls++
}

func (m *MockHost) Load(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LoadCalls = append(m.LoadCalls, path)
}

// DrainPrints returns and clears captured prints.
func (m *MockHost) DrainPrints() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.PrintCalls
	m.PrintCalls = nil
	return out
}
