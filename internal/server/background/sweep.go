package background

import (
	"context"
	"time"

	lambdaevents "github.com/aws/aws-lambda-go/events"
	"github.com/dmitrijs2005/docbox/internal/logging"
	"github.com/dmitrijs2005/docbox/internal/server/metrics"
	"github.com/dmitrijs2005/docbox/internal/server/repositories/repomanager"
	"golang.org/x/sync/errgroup"
)

// Sweep purges expired presigned tasks of every tenant.
type Sweep struct {
	pools       poolSource
	repos       repomanager.RepositoryManager
	resources   resourceFactory
	lifecycle   lifecycle
	metrics     *metrics.Metrics
	log         logging.Logger
	concurrency int
	now         func() time.Time
}

func NewSweep(pools poolSource, repos repomanager.RepositoryManager, resources resourceFactory,
	lc lifecycle, m *metrics.Metrics, log logging.Logger, concurrency int) *Sweep {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Sweep{
		pools:       pools,
		repos:       repos,
		resources:   resources,
		lifecycle:   lc,
		metrics:     m,
		log:         log,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// SweepResult summarizes one Run.
type SweepResult struct {
	Tenants int
	Purged  int
	Failed  int
}

type tenantResult struct {
	purged int
	failed bool
}

// Run purges every tenant, at most concurrency at a time. A tenant's failure
// is logged and counted; the others proceed.
func (s *Sweep) Run(ctx context.Context) SweepResult {
	root, err := s.pools.RootPool(ctx)
	if err != nil {
		s.log.Error(ctx, "sweep: failed to open root database", "error", err)
		return SweepResult{}
	}

	tenants, err := s.repos.Tenants(root).List(ctx)
	if err != nil {
		s.log.Error(ctx, "sweep: failed to list tenants", "error", err)
		return SweepResult{}
	}

	now := s.now().UTC()
	results := make([]tenantResult, len(tenants))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, t := range tenants {
		g.Go(func() error {
			log := s.log.With("tenant_id", t.ID, "tenant_env", t.Env)

			db, err := s.pools.TenantPool(ctx, t)
			if err != nil {
				log.Error(ctx, "sweep: failed to open tenant database", "error", err)
				results[i].failed = true
				return nil
			}

			res := s.resources.For(t, db)
			n, err := s.lifecycle.PurgeExpired(ctx, db, res.Storage, now)
			results[i].purged = n
			if err != nil {
				log.Error(ctx, "sweep: tenant purge incomplete", "purged", n, "error", err)
				results[i].failed = true
			}
			return nil
		})
	}
	_ = g.Wait()

	out := SweepResult{Tenants: len(tenants)}
	for _, r := range results {
		out.Purged += r.purged
		if r.failed {
			out.Failed++
		}
	}
	s.metrics.TasksPurged.Add(float64(out.Purged))
	s.metrics.SweepFailures.Add(float64(out.Failed))

	s.log.Info(ctx, "sweep finished", "tenants", out.Tenants, "purged", out.Purged, "failed", out.Failed)
	return out
}

// HandleScheduled is the lambda entry for the scheduled trigger.
func (s *Sweep) HandleScheduled(ctx context.Context, _ lambdaevents.CloudWatchEvent) error {
	s.Run(ctx)
	return nil
}
