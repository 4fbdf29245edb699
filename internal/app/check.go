package app

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const checkTimeout = 3 * time.Second

// DependencyStatus is the result of one dependency probe.
type DependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Readiness summarises all dependency probes.
type Readiness struct {
	Status       string                      `json:"status"`
	Dependencies map[string]DependencyStatus `json:"dependencies"`
}

// Healthy reports whether every dependency answered.
func (r Readiness) Healthy() bool {
	return r.Status == "ok"
}

// Check probes local storage and the backend concurrently.
func (a *App) Check(ctx context.Context) Readiness {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	probes := map[string]func(context.Context) error{
		"storage": a.kv.Ping,
		"backend": a.API.Ping,
	}

	var (
		mu   sync.Mutex
		deps = make(map[string]DependencyStatus, len(probes))
	)
	g, gctx := errgroup.WithContext(ctx)
	for name, probe := range probes {
		g.Go(func() error {
			st := DependencyStatus{Status: "ok"}
			if err := probe(gctx); err != nil {
				st = DependencyStatus{Status: "unhealthy", Error: err.Error()}
			}
			mu.Lock()
			deps[name] = st
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	status := "ok"
	for name, st := range deps {
		if st.Status != "ok" {
			status = "degraded"
			a.log.Warn().Str("dependency", name).Str("error", st.Error).Msg("dependency unhealthy")
		}
	}
	return Readiness{Status: status, Dependencies: deps}
}
