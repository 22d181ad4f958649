package tests

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
	"dispatch/internal/service"
)

// ──────────────────────────────────────────────
// MOCK ORDER REPOSITORY
// ──────────────────────────────────────────────

// MockOrderRepository is an in-memory implementation of OrderRepository with
// the same conditional-update semantics as the SQL one.
type MockOrderRepository struct {
	mu     sync.RWMutex
	orders map[int64]*domain.Order
	nextID int64

	// Counters for verification
	CreateCallCount         int32
	UpdateStatusIfCallCount int32
	AssignDriverIfCallCount int32

	// Error injection
	CreateError error
	GetError    error
	UpdateError error

	// UpdateStatusIfHook, when set, runs before each conditional status
	// update takes the lock. Tests use it to slip a competing mutation in
	// between a caller's read and its compare-and-set.
	UpdateStatusIfHook func(id int64)
}

// NewMockOrderRepository creates a new mock order repository.
func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{orders: make(map[int64]*domain.Order)}
}

// AddOrder seeds an order, assigning an id when unset.
func (m *MockOrderRepository) AddOrder(order *domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if order.ID == 0 {
		m.nextID++
		order.ID = m.nextID
	} else if order.ID > m.nextID {
		m.nextID = order.ID
	}
	m.orders[order.ID] = order
}

func (m *MockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	order.ID = m.nextID
	copy := *order
	m.orders[order.ID] = &copy
	return nil
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	order, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *order
	return &copy, nil
}

func (m *MockOrderRepository) ListActive(ctx context.Context, limit, offset int) ([]*domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var active []*domain.Order
	for _, o := range m.orders {
		if !o.Status.IsTerminal() {
			copy := *o
			active = append(active, &copy)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })
	if offset >= len(active) {
		return nil, nil
	}
	end := offset + limit
	if end > len(active) {
		end = len(active)
	}
	return active[offset:end], nil
}

// AllOrders snapshots every stored order, terminal ones included, sorted by id.
func (m *MockOrderRepository) AllOrders() []*domain.Order {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var all []*domain.Order
	for _, o := range m.orders {
		copy := *o
		all = append(all, &copy)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all
}

func (m *MockOrderRepository) HasActiveByClient(ctx context.Context, clientID int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, o := range m.orders {
		if o.ClientID == clientID && !o.Status.IsTerminal() {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockOrderRepository) HasAcceptedByDriver(ctx context.Context, driverID int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, o := range m.orders {
		if o.DriverID == driverID && o.Status == domain.OrderStatusAccepted {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockOrderRepository) UpdateStatusIf(ctx context.Context, id int64, expected, next domain.OrderStatus, cancelledBy string) (bool, error) {
	atomic.AddInt32(&m.UpdateStatusIfCallCount, 1)
	if m.UpdateError != nil {
		return false, m.UpdateError
	}
	if m.UpdateStatusIfHook != nil {
		m.UpdateStatusIfHook(id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if order.Status != expected {
		return false, nil
	}
	order.Status = next
	if cancelledBy != "" {
		order.CancelledBy = cancelledBy
	}
	if next == domain.OrderStatusCancelled {
		order.DriverID = 0
	}
	return true, nil
}

func (m *MockOrderRepository) AssignDriverIf(ctx context.Context, id, driverID int64, at time.Time) (bool, error) {
	atomic.AddInt32(&m.AssignDriverIfCallCount, 1)
	if m.UpdateError != nil {
		return false, m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if order.Status != domain.OrderStatusPending || order.DriverID != 0 {
		return false, nil
	}
	for _, o := range m.orders {
		if o.DriverID == driverID && o.Status == domain.OrderStatusAccepted {
			return false, nil
		}
	}
	order.DriverID = driverID
	order.Status = domain.OrderStatusAccepted
	order.AcceptedAt = at
	return true, nil
}

func (m *MockOrderRepository) SetFirstBidAt(ctx context.Context, id int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	if order.FirstBidAt.IsZero() {
		order.FirstBidAt = at
	}
	return nil
}

func (m *MockOrderRepository) SetDriverArrived(ctx context.Context, id, driverID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[id]
	if !ok {
		return false, repository.ErrNotFound
	}
	if order.DriverID != driverID || order.Status != domain.OrderStatusAccepted {
		return false, nil
	}
	order.DriverArrived = true
	return true, nil
}

// ──────────────────────────────────────────────
// MOCK BID REPOSITORY
// ──────────────────────────────────────────────

// MockBidRepository is an in-memory implementation of BidRepository.
type MockBidRepository struct {
	mu     sync.RWMutex
	bids   map[int64][]*domain.Bid // keyed by order id
	nextID int64

	// Error injection
	InsertError error
	ListError   error
}

// NewMockBidRepository creates a new mock bid repository.
func NewMockBidRepository() *MockBidRepository {
	return &MockBidRepository{bids: make(map[int64][]*domain.Bid)}
}

func (m *MockBidRepository) InsertIfAbsent(ctx context.Context, orderID, driverID int64, arrivalMinutes int) (bool, error) {
	if m.InsertError != nil {
		return false, m.InsertError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bids[orderID] {
		if b.DriverID == driverID {
			return false, nil
		}
	}
	m.nextID++
	m.bids[orderID] = append(m.bids[orderID], &domain.Bid{
		ID:             m.nextID,
		OrderID:        orderID,
		DriverID:       driverID,
		ArrivalMinutes: arrivalMinutes,
		Status:         domain.BidStatusPending,
		CreatedAt:      time.Now(),
	})
	return true, nil
}

func (m *MockBidRepository) ListByOrder(ctx context.Context, orderID int64) ([]*domain.Bid, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Bid, 0, len(m.bids[orderID]))
	for _, b := range m.bids[orderID] {
		copy := *b
		out = append(out, &copy)
	}
	return out, nil
}

func (m *MockBidRepository) HasAny(ctx context.Context, orderID int64) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.bids[orderID]) > 0, nil
}

func (m *MockBidRepository) MarkAccepted(ctx context.Context, orderID, driverID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bids[orderID] {
		if b.DriverID == driverID {
			b.Status = domain.BidStatusAccepted
		}
	}
	return nil
}

func (m *MockBidRepository) RejectOthers(ctx context.Context, orderID, driverID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bids[orderID] {
		if b.DriverID != driverID {
			b.Status = domain.BidStatusRejected
		}
	}
	return nil
}

// ──────────────────────────────────────────────
// MOCK DRIVER REPOSITORY
// ──────────────────────────────────────────────

// MockDriverRepository is an in-memory implementation of DriverRepository.
type MockDriverRepository struct {
	mu      sync.RWMutex
	drivers map[int64]*domain.Driver

	// Error injection
	ListError error
}

// NewMockDriverRepository creates a new mock driver repository.
func NewMockDriverRepository() *MockDriverRepository {
	return &MockDriverRepository{drivers: make(map[int64]*domain.Driver)}
}

// AddDriver seeds a driver.
func (m *MockDriverRepository) AddDriver(driver *domain.Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[driver.ID] = driver
}

func (m *MockDriverRepository) Save(ctx context.Context, driver *domain.Driver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *driver
	m.drivers[driver.ID] = &copy
	return nil
}

func (m *MockDriverRepository) GetByID(ctx context.Context, id int64) (*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	driver, ok := m.drivers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *driver
	return &copy, nil
}

func (m *MockDriverRepository) ListEligible(ctx context.Context, now time.Time) ([]*domain.Driver, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var eligible []*domain.Driver
	for _, d := range m.drivers {
		if d.Eligible(now) {
			copy := *d
			eligible = append(eligible, &copy)
		}
	}
	sort.Slice(eligible, func(i, j int) bool { return eligible[i].ID < eligible[j].ID })
	return eligible, nil
}

func (m *MockDriverRepository) SetShift(ctx context.Context, id int64, open bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	driver.ShiftOpened = open
	return nil
}

// ──────────────────────────────────────────────
// MOCK RATING REPOSITORY
// ──────────────────────────────────────────────

type ratingKey struct {
	orderID int64
	raterID int64
}

// MockRatingRepository is an in-memory implementation of RatingRepository.
type MockRatingRepository struct {
	mu      sync.RWMutex
	ratings map[ratingKey]*domain.Rating
}

// NewMockRatingRepository creates a new mock rating repository.
func NewMockRatingRepository() *MockRatingRepository {
	return &MockRatingRepository{ratings: make(map[ratingKey]*domain.Rating)}
}

func (m *MockRatingRepository) Save(ctx context.Context, rating *domain.Rating) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := ratingKey{orderID: rating.OrderID, raterID: rating.RaterID}
	if _, exists := m.ratings[key]; exists {
		return false, nil
	}
	copy := *rating
	m.ratings[key] = &copy
	return true, nil
}

func (m *MockRatingRepository) AverageFor(ctx context.Context, userID int64) (float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var sum, count int
	for _, r := range m.ratings {
		if r.TargetID == userID {
			sum += r.Score
			count++
		}
	}
	if count == 0 {
		return 0, nil
	}
	return float64(sum) / float64(count), nil
}

// ──────────────────────────────────────────────
// MOCK REDIS STORES
// ──────────────────────────────────────────────

// MockCooldownStore is an in-memory CooldownStoreInterface.
type MockCooldownStore struct {
	mu      sync.Mutex
	expires map[int64]time.Time

	// Error injection
	AcquireError error
}

// NewMockCooldownStore creates a new mock cooldown store.
func NewMockCooldownStore() *MockCooldownStore {
	return &MockCooldownStore{expires: make(map[int64]time.Time)}
}

func (m *MockCooldownStore) TryAcquire(ctx context.Context, clientID int64, ttl time.Duration) (bool, time.Duration, error) {
	if m.AcquireError != nil {
		return false, 0, m.AcquireError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	if until, ok := m.expires[clientID]; ok && until.After(now) {
		return false, until.Sub(now), nil
	}
	m.expires[clientID] = now.Add(ttl)
	return true, 0, nil
}

func (m *MockCooldownStore) Clear(ctx context.Context, clientID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.expires, clientID)
	return nil
}

// MockSettingsStore is an in-memory SettingsStoreInterface.
type MockSettingsStore struct {
	mu  sync.Mutex
	val *bool
}

// NewMockSettingsStore creates a new mock settings store.
func NewMockSettingsStore() *MockSettingsStore {
	return &MockSettingsStore{}
}

func (m *MockSettingsStore) AutoAcceptEnabled(ctx context.Context, fallback bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.val == nil {
		return fallback
	}
	return *m.val
}

func (m *MockSettingsStore) SetAutoAccept(ctx context.Context, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.val = &enabled
	return nil
}

// MockPositionStore is an in-memory PositionStoreInterface.
type MockPositionStore struct {
	mu        sync.RWMutex
	positions map[int64]*redis.DriverPosition
}

// NewMockPositionStore creates a new mock position store.
func NewMockPositionStore() *MockPositionStore {
	return &MockPositionStore{positions: make(map[int64]*redis.DriverPosition)}
}

func (m *MockPositionStore) Update(ctx context.Context, pos *redis.DriverPosition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy := *pos
	m.positions[pos.DriverID] = &copy
	return nil
}

func (m *MockPositionStore) Get(ctx context.Context, driverID int64) (*redis.DriverPosition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pos, ok := m.positions[driverID]
	if !ok {
		return nil, nil
	}
	copy := *pos
	return &copy, nil
}

// ──────────────────────────────────────────────
// MOCK BID ACCEPTOR
// ──────────────────────────────────────────────

// MockBidAcceptor applies the acceptance against the mock repositories, with
// the order repository's conditional update as the arbiter. It mirrors the
// transactional implementation closely enough for concurrency tests.
type MockBidAcceptor struct {
	Orders *MockOrderRepository
	Bids   *MockBidRepository

	AcceptCallCount int32

	// Error injection
	AcceptError error
}

// NewMockBidAcceptor creates a new mock bid acceptor over the given repos.
func NewMockBidAcceptor(orders *MockOrderRepository, bids *MockBidRepository) *MockBidAcceptor {
	return &MockBidAcceptor{Orders: orders, Bids: bids}
}

func (m *MockBidAcceptor) AcceptBid(ctx context.Context, orderID, driverID int64, at time.Time) (bool, error) {
	atomic.AddInt32(&m.AcceptCallCount, 1)
	if m.AcceptError != nil {
		return false, m.AcceptError
	}
	won, err := m.Orders.AssignDriverIf(ctx, orderID, driverID, at)
	if err != nil || !won {
		return false, err
	}
	if err := m.Bids.MarkAccepted(ctx, orderID, driverID); err != nil {
		return false, err
	}
	if err := m.Bids.RejectOthers(ctx, orderID, driverID); err != nil {
		return false, err
	}
	return true, nil
}

// ──────────────────────────────────────────────
// CAPTURING NOTIFICATION SINK
// ──────────────────────────────────────────────

// CaptureSink records every notification sent through it.
type CaptureSink struct {
	mu   sync.Mutex
	sent []service.Notification
}

// NewCaptureSink creates a new capturing sink.
func NewCaptureSink() *CaptureSink {
	return &CaptureSink{}
}

func (s *CaptureSink) Send(ctx context.Context, n service.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, n)
	return nil
}

// Sent returns a snapshot of the captured notifications.
func (s *CaptureSink) Sent() []service.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]service.Notification, len(s.sent))
	copy(out, s.sent)
	return out
}

// CountByType returns how many captured notifications have the given type.
func (s *CaptureSink) CountByType(typ service.NotificationType) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.sent {
		if n.Type == typ {
			count++
		}
	}
	return count
}
