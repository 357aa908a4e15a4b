package sessions

import (
	"fmt"
	"sort"
	"sync"

	ierrors "github.com/jrsteele09/go-vtiger/internal/errors"
)

// Driver names a Repo implementation.
type Driver string

const (
	// DriverMemory keeps the record in process memory.
	DriverMemory Driver = "memory"
	// DriverFile keeps the record in a local JSON file.
	DriverFile Driver = "file"
	// DriverRedis keeps the record in Redis.
	DriverRedis Driver = "redis"
	// DriverBolt keeps the record in an embedded bbolt database.
	DriverBolt Driver = "bolt"
)

// DriverConfig holds the settings any driver may need.
type DriverConfig struct {
	Driver Driver

	// File driver
	FilePath string

	// Bolt driver
	BoltPath string

	// Redis driver
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// DriverFactory creates a Repo from configuration.
type DriverFactory func(cfg DriverConfig) (Repo, error)

var (
	driverFactories = make(map[Driver]DriverFactory)
	mu              sync.RWMutex
)

// RegisterDriver registers a driver factory. Driver packages call this from init().
func RegisterDriver(driver Driver, factory DriverFactory) {
	mu.Lock()
	defer mu.Unlock()
	driverFactories[driver] = factory
}

// Drivers lists the registered driver names.
func Drivers() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(driverFactories))
	for d := range driverFactories {
		names = append(names, string(d))
	}
	sort.Strings(names)
	return names
}

// NewRepo creates the Repo selected by cfg.Driver.
// The driver package must be imported for the driver to be available.
func NewRepo(cfg DriverConfig) (Repo, error) {
	mu.RLock()
	factory, ok := driverFactories[cfg.Driver]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: session driver type of %q is not supported (did you import the driver package?)", ierrors.ErrUnknownDriver, cfg.Driver)
	}
	return factory(cfg)
}
