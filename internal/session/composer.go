// Package session composes taskers from (controller, resource) handle pairs
// and memoizes them so identical pairs are never bound twice.
package session

import (
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"maamcp/internal/engine"
	"maamcp/internal/registry"
)

// Binder constructs a tasker from a resolved controller and resource.
// engine.Engine satisfies this.
type Binder interface {
	BindTasker(c engine.Controller, r engine.Resource) (engine.Tasker, error)
}

// Composer memoizes taskers per ordered (controller, resource) handle pair.
// Concurrent first-time requests for the same pair construct exactly one
// tasker; later requests reuse the registered one.
type Composer struct {
	reg    *registry.Registry
	binder Binder
	group  singleflight.Group
	logger *zap.Logger
}

// NewComposer creates a composer over the given registry and binder.
func NewComposer(reg *registry.Registry, binder Binder, logger *zap.Logger) *Composer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Composer{reg: reg, binder: binder, logger: logger}
}

// taskerKey derives the composite cache key for an ordered handle pair.
// (controller, resource) and (resource, controller) never collide: the two
// handles keep their positions around the separators.
func taskerKey(controllerID, resourceID string) string {
	return fmt.Sprintf("tasker/%s/%s", controllerID, resourceID)
}

// GetOrCreateTasker returns the tasker handle for the pair, binding and
// registering a new tasker on first use. The second return value is false
// when either handle does not resolve or the bind fails; a failed bind is
// never cached.
func (c *Composer) GetOrCreateTasker(controllerID, resourceID string) (string, bool) {
	key := taskerKey(controllerID, resourceID)
	if _, ok := c.reg.Get(key); ok {
		return key, true
	}

	_, err, _ := c.group.Do(key, func() (any, error) {
		// A racer may have finished while we queued behind the flight.
		if _, ok := c.reg.Get(key); ok {
			return key, nil
		}

		ctrlObj, ok := c.reg.Get(controllerID)
		if !ok {
			return nil, fmt.Errorf("unknown controller handle %q", controllerID)
		}
		resObj, ok := c.reg.Get(resourceID)
		if !ok {
			return nil, fmt.Errorf("unknown resource handle %q", resourceID)
		}
		controller, ok := ctrlObj.(engine.Controller)
		if !ok {
			return nil, fmt.Errorf("handle %q is not a controller", controllerID)
		}
		resource, ok := resObj.(engine.Resource)
		if !ok {
			return nil, fmt.Errorf("handle %q is not a resource", resourceID)
		}

		tasker, err := c.binder.BindTasker(controller, resource)
		if err != nil {
			return nil, fmt.Errorf("bind tasker: %w", err)
		}

		c.reg.RegisterByName(key, tasker)
		c.logger.Debug("tasker bound",
			zap.String("controller", controllerID),
			zap.String("resource", resourceID))
		return key, nil
	})
	if err != nil {
		c.logger.Debug("tasker compose failed", zap.String("key", key), zap.Error(err))
		return "", false
	}
	return key, true
}
