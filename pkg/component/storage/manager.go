package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kart-io/provenance/pkg/infra/pool"
)

// Manager is a registry of named storage clients. It centralizes health
// checking and shutdown so application code never tracks backends one by
// one. Safe for concurrent use.
//
//	mgr := storage.NewManager()
//	mgr.MustRegister("raw-store", mysqlClient)
//
//	statuses := mgr.HealthCheckAll(ctx)
//	defer mgr.CloseAll()
type Manager struct {
	mu      sync.RWMutex
	clients map[string]Client
}

// NewManager returns an empty registry.
func NewManager() *Manager {
	return &Manager{clients: make(map[string]Client)}
}

// Register adds a client under a unique, descriptive name such as
// "raw-store" or "query-cache". Registering an existing name fails.
func (m *Manager) Register(name string, client Client) error {
	if name == "" {
		return ErrInvalidConfig.WithMessage("client name cannot be empty")
	}
	if client == nil {
		return ErrInvalidConfig.WithMessage("client cannot be nil")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.clients[name]; exists {
		return ErrClientAlreadyExists.WithMessage(fmt.Sprintf("client '%s' is already registered", name))
	}
	m.clients[name] = client
	return nil
}

// MustRegister is Register for initialization paths where a failure is
// fatal. It panics on error.
func (m *Manager) MustRegister(name string, client Client) {
	if err := m.Register(name, client); err != nil {
		panic(fmt.Sprintf("failed to register storage client: %v", err))
	}
}

// Unregister removes a client without closing it; the caller keeps
// ownership of the connection.
func (m *Manager) Unregister(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.clients[name]; !exists {
		return ErrClientNotFound.WithMessage(fmt.Sprintf("client '%s' not found", name))
	}
	delete(m.clients, name)
	return nil
}

// Get looks up a client by name.
func (m *Manager) Get(name string) (Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	client, exists := m.clients[name]
	if !exists {
		return nil, ErrClientNotFound.WithMessage(fmt.Sprintf("client '%s' not found", name))
	}
	return client, nil
}

// Has reports whether a client with the given name is registered.
func (m *Manager) Has(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.clients[name]
	return exists
}

// List returns the names of all registered clients.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.clients))
	for name := range m.clients {
		names = append(names, name)
	}
	return names
}

// Count returns how many clients are registered.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.clients)
}

func pingStatus(ctx context.Context, name string, client Client) HealthStatus {
	start := time.Now()
	err := client.Ping(ctx)

	return HealthStatus{
		Name:    name,
		Healthy: err == nil,
		Latency: time.Since(start),
		Error:   err,
	}
}

// HealthCheck pings one client and reports its latency.
func (m *Manager) HealthCheck(ctx context.Context, name string) HealthStatus {
	client, err := m.Get(name)
	if err != nil {
		return HealthStatus{Name: name, Error: err}
	}
	return pingStatus(ctx, name, client)
}

// HealthCheckAll pings every registered client concurrently and returns a
// status per client name.
//
// 并行检查通过 ants 健康检查池执行，池不可用时退回到裸 goroutine。
func (m *Manager) HealthCheckAll(ctx context.Context) map[string]HealthStatus {
	m.mu.RLock()
	clients := make(map[string]Client, len(m.clients))
	for name, client := range m.clients {
		clients[name] = client
	}
	m.mu.RUnlock()

	healthPool, err := pool.GetByType(pool.HealthCheckPool)
	usePool := err == nil && healthPool != nil

	statuses := make(map[string]HealthStatus, len(clients))
	var statusMu sync.Mutex
	var wg sync.WaitGroup

	for name, client := range clients {
		wg.Add(1)
		n, c := name, client
		task := func() {
			defer wg.Done()

			status := pingStatus(ctx, n, c)

			statusMu.Lock()
			statuses[n] = status
			statusMu.Unlock()
		}

		if usePool {
			if submitErr := healthPool.Submit(task); submitErr != nil {
				go task()
			}
		} else {
			go task()
		}
	}

	wg.Wait()
	return statuses
}

// AllHealthy reports whether every registered client passes its health
// check.
func (m *Manager) AllHealthy(ctx context.Context) bool {
	for _, status := range m.HealthCheckAll(ctx) {
		if !status.Healthy {
			return false
		}
	}
	return true
}

// Close closes one client and removes it from the registry.
func (m *Manager) Close(name string) error {
	client, err := m.Get(name)
	if err != nil {
		return err
	}
	if closeErr := client.Close(); closeErr != nil {
		return closeErr
	}
	return m.Unregister(name)
}

// CloseAll closes every client during shutdown. All clients are attempted
// even when some fail; the first error wins.
func (m *Manager) CloseAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for name, client := range m.clients {
		if err := client.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close client '%s': %w", name, err)
		}
		delete(m.clients, name)
	}
	return firstErr
}

// Clear empties the registry without closing anything. Mostly for tests.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clients = make(map[string]Client)
}
