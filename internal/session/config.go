package session

import (
	"github.com/matthewbaird/stationcu/internal/config"
	"github.com/matthewbaird/stationcu/internal/hostproto"
	"github.com/matthewbaird/stationcu/internal/render"
	"github.com/matthewbaird/stationcu/internal/types"
)

// OptionsFromConfig maps the host, store and render sections onto session
// options. Catalog, Recorder, Observer and Logger are left for the caller.
func OptionsFromConfig(c config.Config) Options {
	return Options{
		Host: hostproto.Config{
			APIVersion:   c.Host.APIVersion,
			ReadyRetries: c.Host.ReadyRetries,
			RetryBackoff: c.RetryBackoff(),
			HostTimeout:  c.HostTimeout(),
		},
		Render:          render.Options{ActivityFields: c.Render.ActivityFields},
		PayloadField:    c.Host.PayloadField,
		FixtureFallback: c.Host.FixtureFallback,
		LineIDPrefix:    c.Store.LineIDPrefix,
		LineIDWidth:     c.Store.LineIDWidth,
		DefaultActor:    types.Actor{ID: c.Store.DefaultActor.ID, Name: c.Store.DefaultActor.Name},
	}
}

// ManagerConfigFromConfig maps the session section.
func ManagerConfigFromConfig(c config.Config) ManagerConfig {
	return ManagerConfig{
		MaxAge:          c.SessionMaxAge(),
		IdleTimeout:     c.SessionIdleTimeout(),
		CleanupSchedule: c.Session.CleanupSchedule,
	}
}
