package health

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type CheckResult struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

type Checker interface {
	Check(ctx context.Context) CheckResult
}

// ProbeRunner runs all checkers concurrently under one deadline. Results are
// cached briefly so a burst of probes does not hammer dependencies.
type ProbeRunner struct {
	timeout  time.Duration
	cacheTTL time.Duration
	checkers []Checker

	mu       sync.Mutex
	cachedAt time.Time
	ready    bool
	results  []CheckResult
}

func NewProbeRunner(timeout, cacheTTL time.Duration, checkers ...Checker) *ProbeRunner {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &ProbeRunner{timeout: timeout, cacheTTL: cacheTTL, checkers: checkers}
}

func (p *ProbeRunner) Ready(ctx context.Context) (bool, []CheckResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cacheTTL > 0 && !p.cachedAt.IsZero() && time.Since(p.cachedAt) < p.cacheTTL {
		return p.ready, p.results
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	results := make([]CheckResult, len(p.checkers))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range p.checkers {
		g.Go(func() error {
			results[i] = c.Check(gctx)
			return nil
		})
	}
	_ = g.Wait()

	ready := true
	for _, r := range results {
		if !r.Healthy {
			ready = false
			break
		}
	}
	p.ready, p.results, p.cachedAt = ready, results, time.Now()
	return ready, results
}

type DBChecker struct{ db *gorm.DB }

func NewDBChecker(db *gorm.DB) DBChecker { return DBChecker{db: db} }

func (c DBChecker) Check(ctx context.Context) CheckResult {
	res := CheckResult{Name: "db"}
	sqlDB, err := c.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Healthy = true
	return res
}

type RedisChecker struct{ client redis.UniversalClient }

func NewRedisChecker(client redis.UniversalClient) RedisChecker { return RedisChecker{client: client} }

func (c RedisChecker) Check(ctx context.Context) CheckResult {
	res := CheckResult{Name: "redis"}
	if c.client == nil {
		res.Error = "redis client not configured"
		return res
	}
	if err := c.client.Ping(ctx).Err(); err != nil {
		res.Error = err.Error()
		return res
	}
	res.Healthy = true
	return res
}
