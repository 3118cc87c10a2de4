// Package simulate runs many independent navigation sessions over one
// shared survey and tallies the paths they take.
package simulate

import (
	"cmp"
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"

	"github.com/vk/surveynav/internal/ctxlog"
	"github.com/vk/surveynav/internal/session"
	"github.com/vk/surveynav/internal/survey"
	"golang.org/x/sync/errgroup"
)

// PathSeparator joins question names in a path key.
const PathSeparator = " -> "

// Config controls a simulation run.
type Config struct {
	// Agents is the number of simulated respondents.
	Agents int
	// Workers bounds how many sessions run at once. Zero means Agents.
	Workers int
	// Seed makes the run reproducible: agent i draws from PCG(Seed, i).
	Seed uint64
	// Scenario is seeded into every session as scenario.<key>.
	Scenario map[string]any
}

// PathCount is one distinct path and how many agents took it.
type PathCount struct {
	Path  []string
	Count int
}

// Key returns the path joined with PathSeparator.
func (p PathCount) Key() string { return strings.Join(p.Path, PathSeparator) }

// Report summarises a simulation run.
type Report struct {
	Agents int
	// Paths is sorted by descending count, then by key.
	Paths []PathCount
}

// Run walks cfg.Agents sessions concurrently. The survey is only read. The
// first session error cancels the rest and is returned.
func Run(ctx context.Context, sv *survey.Survey, cfg Config) (*Report, error) {
	if cfg.Agents <= 0 {
		return nil, fmt.Errorf("agents must be positive, got %d", cfg.Agents)
	}
	logger := ctxlog.FromContext(ctx)
	workers := cfg.Workers
	if workers <= 0 {
		workers = cfg.Agents
	}
	logger.Debug("Simulation started.", "agents", cfg.Agents, "workers", workers, "seed", cfg.Seed)

	paths := make([][]string, cfg.Agents)
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range cfg.Agents {
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(cfg.Seed, uint64(i)))
			s := session.New(sv,
				session.WithAgent(map[string]any{"id": i}),
				session.WithScenario(cfg.Scenario),
				session.WithRand(rng),
				session.WithLogger(logger.With("agent", i)),
			)
			path, err := s.Walk(gCtx, RandomResponder(rng))
			if err != nil {
				return fmt.Errorf("agent %d: %w", i, err)
			}
			paths[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("Simulation failed.", "error", err)
		return nil, err
	}

	report := &Report{Agents: cfg.Agents, Paths: tally(paths)}
	logger.Debug("Simulation finished.", "distinct_paths", len(report.Paths))
	return report, nil
}

// RandomResponder answers with a random option, or a random number in
// [0, 100) when the question has no options.
func RandomResponder(rng *rand.Rand) session.Responder {
	return session.ResponderFunc(func(_ context.Context, p session.Prompt) (any, error) {
		if len(p.Options) > 0 {
			return p.Options[rng.IntN(len(p.Options))], nil
		}
		return rng.IntN(100), nil
	})
}

func tally(paths [][]string) []PathCount {
	index := make(map[string]int)
	var counts []PathCount
	for _, path := range paths {
		key := strings.Join(path, PathSeparator)
		if i, ok := index[key]; ok {
			counts[i].Count++
			continue
		}
		index[key] = len(counts)
		counts = append(counts, PathCount{Path: path, Count: 1})
	}
	slices.SortFunc(counts, func(a, b PathCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Key(), b.Key())
	})
	return counts
}
