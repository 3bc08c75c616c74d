package engine

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// Registry maps devices to the backend Loader serving them.  A GPU request
// without a registered GPU backend falls back to the CPU backend.
type Registry struct {
	mu      sync.RWMutex
	loaders map[Device]Loader
	log     logrus.FieldLogger
}

// NewRegistry returns an empty Registry
func NewRegistry(log logrus.FieldLogger) *Registry {
	return &Registry{
		loaders: make(map[Device]Loader),
		log:     log,
	}
}

// Register sets the Loader for a device, replacing any existing one
func (r *Registry) Register(dev Device, l Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaders[dev] = l
}

// Devices returns the devices with a registered backend
func (r *Registry) Devices() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var devs []Device

	for _, d := range []Device{CPU, GPU, NPU} {
		if _, ok := r.loaders[d]; ok {
			devs = append(devs, d)
		}
	}

	return devs
}

// Load loads the model on the backend registered for opts.Device
func (r *Registry) Load(model []byte, opts Options) (Engine, error) {

	r.mu.RLock()
	l, ok := r.loaders[opts.Device]

	if !ok && opts.Device == GPU {
		l, ok = r.loaders[CPU]

		if ok {
			r.log.Warn("No GPU backend available, falling back to CPU")
			opts.Device = CPU
		}
	}
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("no inference backend registered for device %s", opts.Device)
	}

	if opts.Log == nil {
		opts.Log = r.log
	}

	return l.Load(model, opts)
}
