package bridge

import (
	"sync"

	"go.uber.org/zap"

	nanocorehost "github.com/wippyai/nanocore-host"
	"github.com/wippyai/nanocore-host/device"
	"github.com/wippyai/nanocore-host/engine"
	"github.com/wippyai/nanocore-host/errors"
	"github.com/wippyai/nanocore-host/event"
)

// Handle identifies an instance in a registry. Handles are small
// non-negative integers, assigned in creation order and never reused.
type Handle int32

// InvalidHandle is returned by Create on failure.
const InvalidHandle Handle = -1

// MaxMemorySize caps a single instance's guest memory at 4 GiB.
const MaxMemorySize = 1 << 32

// Registry owns the handle table. Destroyed handles leave a tombstone
// slot behind so later instances never inherit an old handle.
type Registry struct {
	mu      sync.RWMutex
	slots   []*Instance
	session *engine.Session
	log     *zap.Logger
}

// NewRegistry creates an empty registry. All instances created through
// it share the session's engine. A nil logger disables logging.
func NewRegistry(session *engine.Session, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		session: session,
		log:     logger,
	}
}

// Create allocates an instance with memorySize bytes of guest memory,
// initializes its engine context, and returns its handle.
func (r *Registry) Create(memorySize uint64) (Handle, error) {
	if memorySize == 0 {
		return InvalidHandle, errors.InvalidParameter(errors.PhaseRegistry, "zero memory size")
	}
	if memorySize > MaxMemorySize {
		return InvalidHandle, errors.OutOfMemory(memorySize)
	}

	inst := &Instance{
		session: r.session,
		mem:     make([]byte, memorySize),
		bps:     make(map[uint64]struct{}),
		devices: device.NewManager(r.log),
		queue:   event.NewQueue(),
		log:     r.log,
	}

	var initErr error
	r.session.Do(func(eng nanocorehost.Engine) {
		if initErr = eng.Init(inst.mem, inst.devices); initErr == nil {
			inst.cache = eng.State()
		}
	})
	if initErr != nil {
		return InvalidHandle, errors.EngineFailure("instance initialization", initErr)
	}

	r.mu.Lock()
	h := Handle(len(r.slots))
	inst.handle = h
	r.slots = append(r.slots, inst)
	r.mu.Unlock()

	r.log.Debug("instance created",
		zap.Int32("handle", int32(h)),
		zap.Uint64("memory_size", memorySize))
	return h, nil
}

// Get resolves a handle to its instance. Destroyed and out-of-range
// handles both fail the same way.
func (r *Registry) Get(h Handle) (*Instance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if h < 0 || int(h) >= len(r.slots) || r.slots[h] == nil {
		return nil, errors.InvalidHandle(int32(h))
	}
	return r.slots[h], nil
}

// Destroy tombstones the handle. An operation already in flight on the
// instance completes against the orphaned instance; new lookups fail.
func (r *Registry) Destroy(h Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h < 0 || int(h) >= len(r.slots) || r.slots[h] == nil {
		return errors.InvalidHandle(int32(h))
	}
	r.slots[h] = nil
	r.log.Debug("instance destroyed", zap.Int32("handle", int32(h)))
	return nil
}

// Len reports the number of live instances.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, s := range r.slots {
		if s != nil {
			n++
		}
	}
	return n
}
