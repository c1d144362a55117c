package ledger

import (
	"context"
	"sort"
	"sync"

	"github.com/suirifyprotocol/suirify-sub000/interfaces"
)

// MockClient is an in-memory implementation of interfaces.LedgerClient for
// tests that need chain behavior without a fullnode. It stores events and
// objects in maps and lets tests script transaction outcomes.
type MockClient struct {
	mu sync.Mutex

	events      []interfaces.LedgerEvent
	objects     map[interfaces.ObjectID]*interfaces.LedgerObject
	owned       map[interfaces.WalletAddress][]interfaces.LedgerObject
	queryErr    error
	subscribers []*mockSubscriber
	SubmitFunc  func(call interfaces.ProgramCall) (*interfaces.TransactionResult, error)
	SubmitCalls []interfaces.ProgramCall
}

type mockSubscriber struct {
	filter  interfaces.EventFilter
	onEvent func(interfaces.LedgerEvent)
	done    chan error
	once    sync.Once
}

func (s *mockSubscriber) Unsubscribe()      { s.once.Do(func() { close(s.done) }) }
func (s *mockSubscriber) Err() <-chan error { return s.done }

// NewMockClient creates an empty mock ledger.
func NewMockClient() *MockClient {
	return &MockClient{
		objects: make(map[interfaces.ObjectID]*interfaces.LedgerObject),
		owned:   make(map[interfaces.WalletAddress][]interfaces.LedgerObject),
	}
}

// AddEvent appends an event to the mock chain and notifies matching
// subscribers.
func (m *MockClient) AddEvent(ev interfaces.LedgerEvent) {
	m.mu.Lock()
	m.events = append(m.events, ev)
	subs := append([]*mockSubscriber(nil), m.subscribers...)
	m.mu.Unlock()

	for _, sub := range subs {
		if sub.filter.EventType == "" || sub.filter.EventType == ev.Type {
			sub.onEvent(ev)
		}
	}
}

// AddObject registers an object for GetObject lookups.
func (m *MockClient) AddObject(obj interfaces.LedgerObject) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[obj.ObjectID.Normalized()] = &obj
}

// AddOwnedObject registers an object for owned-object queries.
func (m *MockClient) AddOwnedObject(owner interfaces.WalletAddress, obj interfaces.LedgerObject) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owned[owner.Normalized()] = append(m.owned[owner.Normalized()], obj)
}

// FailQueries makes every event query return err until reset with nil.
func (m *MockClient) FailQueries(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queryErr = err
}

// SubmitSignedTransaction records the call and delegates to SubmitFunc.
func (m *MockClient) SubmitSignedTransaction(ctx context.Context, call interfaces.ProgramCall) (*interfaces.TransactionResult, error) {
	m.mu.Lock()
	m.SubmitCalls = append(m.SubmitCalls, call)
	fn := m.SubmitFunc
	m.mu.Unlock()

	if fn == nil {
		return &interfaces.TransactionResult{Digest: "mock-digest"}, nil
	}
	return fn(call)
}

// GetOwnedObjectsByType filters registered owned objects by type.
func (m *MockClient) GetOwnedObjectsByType(ctx context.Context, owner interfaces.WalletAddress, objectType string) ([]interfaces.LedgerObject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []interfaces.LedgerObject
	for _, obj := range m.owned[owner.Normalized()] {
		if obj.Type == objectType {
			out = append(out, obj)
		}
	}
	return out, nil
}

// GetObject returns a registered object or ErrObjectNotFound.
func (m *MockClient) GetObject(ctx context.Context, id interfaces.ObjectID) (*interfaces.LedgerObject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	obj, ok := m.objects[id.Normalized()]
	if !ok {
		return nil, interfaces.ErrObjectNotFound
	}
	out := *obj
	return &out, nil
}

// QueryEvents filters stored events by type, sorted by timestamp.
func (m *MockClient) QueryEvents(ctx context.Context, filter interfaces.EventFilter, limit int, cursor *interfaces.EventCursor, descending bool) (*interfaces.EventPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.queryErr != nil {
		return nil, m.queryErr
	}

	var matched []interfaces.LedgerEvent
	for _, ev := range m.events {
		if filter.EventType == "" || ev.Type == filter.EventType {
			matched = append(matched, ev)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if descending {
			return matched[i].TimestampMs > matched[j].TimestampMs
		}
		return matched[i].TimestampMs < matched[j].TimestampMs
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return &interfaces.EventPage{Events: matched}, nil
}

// SubscribeEvents registers a subscriber that receives events added after
// this call.
func (m *MockClient) SubscribeEvents(ctx context.Context, filter interfaces.EventFilter, onEvent func(interfaces.LedgerEvent)) (interfaces.EventSubscription, error) {
	sub := &mockSubscriber{filter: filter, onEvent: onEvent, done: make(chan error, 1)}
	m.mu.Lock()
	m.subscribers = append(m.subscribers, sub)
	m.mu.Unlock()
	return sub, nil
}

var _ interfaces.LedgerClient = (*MockClient)(nil)
