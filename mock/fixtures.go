package mock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// Recorder collects release events in the order they happen.
type Recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *Recorder) Record(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *Recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// Counter counts constructions.
type Counter struct {
	n atomic.Int64
}

func (c *Counter) Inc() int64  { return c.n.Add(1) }
func (c *Counter) Load() int64 { return c.n.Load() }

// Core interfaces
type Database interface {
	Connect() error
	IsConnected() bool
	RequestID() string
}

type Cache interface {
	Get(key string) any
	DB() Database
}

type RequestIDKey struct{}

// MockDB connects on Initialize and disconnects on Dispose.
type MockDB struct {
	connected bool
	requestID string
	Recorder  *Recorder
	Label     string
}

func (m *MockDB) Connect() error {
	m.connected = true
	return nil
}

func (m *MockDB) Initialize(ctx context.Context) error {
	m.connected = true
	if id, ok := ctx.Value(RequestIDKey{}).(string); ok {
		m.requestID = id
	}
	return nil
}

func (m *MockDB) Dispose(ctx context.Context) error {
	m.connected = false
	if m.Recorder != nil {
		m.Recorder.Record("db:" + m.Label)
	}
	return nil
}

func (m *MockDB) IsConnected() bool { return m.connected }
func (m *MockDB) RequestID() string { return m.requestID }

// NewRecordedDB builds a MockDB reporting its disposal to rec.
func NewRecordedDB(rec *Recorder) *MockDB {
	return &MockDB{Recorder: rec, Label: "recorded"}
}

type MockCache struct {
	db Database
}

func NewMockCache(db Database) *MockCache {
	return &MockCache{db: db}
}

func (m *MockCache) Get(key string) any { return nil }
func (m *MockCache) DB() Database       { return m.db }

// FailingDB fails its initialization.
type FailingDB struct {
	MockDB
}

var ErrBootFailure = errors.New("simulated boot failure")

func (f *FailingDB) Initialize(ctx context.Context) error {
	return ErrBootFailure
}

// Circular dependency test types
type CircularService1 interface {
	Service2() CircularService2
}

type CircularService2 interface {
	Service1() CircularService1
}

type CircularImpl1 struct{ svc2 CircularService2 }

func NewCircularImpl1(s CircularService2) *CircularImpl1 { return &CircularImpl1{svc2: s} }
func (i *CircularImpl1) Service2() CircularService2      { return i.svc2 }

type CircularImpl2 struct{ svc1 CircularService1 }

func NewCircularImpl2(s CircularService1) *CircularImpl2 { return &CircularImpl2{svc1: s} }
func (i *CircularImpl2) Service1() CircularService1      { return i.svc1 }

// Deep dependency chain: DeepService1 -> DeepService2 -> DeepService3.
type DeepService3 interface {
	Value() string
}

type DeepService2 interface {
	Service3() DeepService3
}

type DeepService1 interface {
	Service2() DeepService2
}

type DeepImpl3 struct{ value string }

func NewDeepImpl3() *DeepImpl3     { return &DeepImpl3{value: "deep"} }
func (d *DeepImpl3) Value() string { return d.value }

type DeepImpl2 struct{ svc3 DeepService3 }

func NewDeepImpl2(s DeepService3) *DeepImpl2 { return &DeepImpl2{svc3: s} }
func (d *DeepImpl2) Service3() DeepService3  { return d.svc3 }

type DeepImpl1 struct{ svc2 DeepService2 }

func NewDeepImpl1(s DeepService2) *DeepImpl1 { return &DeepImpl1{svc2: s} }
func (d *DeepImpl1) Service2() DeepService2  { return d.svc2 }

type Service interface {
	IsInitialized() bool
}

// SingletonTestService counts its constructions through Counter.
type SingletonTestService struct {
	initialized bool
}

func NewSingletonTestService(c *Counter) *SingletonTestService {
	c.Inc()
	return &SingletonTestService{}
}

func (s *SingletonTestService) Initialize(ctx context.Context) error {
	s.initialized = true
	return nil
}

func (s *SingletonTestService) IsInitialized() bool { return s.initialized }

// SlowService is slow to construct.
type SlowService struct{}

func NewSlowService(c *Counter) *SlowService {
	c.Inc()
	time.Sleep(20 * time.Millisecond)
	return &SlowService{}
}

func (s *SlowService) IsInitialized() bool { return true }

type ComplexServiceInterface interface {
	DB() Database
	Cache() Cache
}

type ComplexService struct {
	db    Database
	cache Cache
}

func NewComplexService(db Database, cache Cache) *ComplexService {
	return &ComplexService{db: db, cache: cache}
}

func (c *ComplexService) DB() Database { return c.db }
func (c *ComplexService) Cache() Cache { return c.cache }

// Resource reports its release to a Recorder through Dispose.
type Resource struct {
	Name     string
	Recorder *Recorder
	Err      error
}

func (r *Resource) Dispose(ctx context.Context) error {
	r.Recorder.Record(r.Name)
	return r.Err
}

// ClosingResource reports its release through io.Closer.
type ClosingResource struct {
	Name     string
	Recorder *Recorder
}

func (r *ClosingResource) Close() error {
	r.Recorder.Record(r.Name)
	return nil
}
