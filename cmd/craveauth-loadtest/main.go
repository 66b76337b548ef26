package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	craveAuth "github.com/CraveEvents/craveAuth"
	"github.com/CraveEvents/craveAuth/internal/testkit"
	"github.com/CraveEvents/craveAuth/password"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const seedPassword = "Str0ng!Pass"

type sessionState struct {
	access  string
	refresh string
	mu      sync.Mutex
}

func main() {
	var (
		sessions    = flag.Int("sessions", 2000, "number of accounts to seed and log in")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 50000, "operations per phase (validate + refresh)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *sessions <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "sessions, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := testkit.Config()
	cfg.Metrics.EnableLatencyHistograms = true
	// The refresh phase rotates the same accounts far faster than any client.
	cfg.Security.EnableRefreshThrottle = false
	cfg.Security.EnableIPThrottle = false

	clients := testkit.NewUserRepo()
	engine, err := craveAuth.New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserRepositories(craveAuth.UserRepositories{Client: clients, Vendor: testkit.NewUserRepo(), Admin: testkit.NewUserRepo()}).
		WithRefreshTokenRepository(testkit.NewRefreshRepo()).
		WithMailer(testkit.NewMailer()).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build engine: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	fmt.Printf("seeding %d sessions...\n", *sessions)
	startSeed := time.Now()
	states, err := seed(ctx, engine, clients, cfg, *sessions, *concurrency)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	validateStats := runPhase(*ops, *concurrency, 7919, func(r *rand.Rand, _ int) error {
		_, err := engine.ValidateAccess(ctx, states[r.Intn(len(states))].access)
		return err
	})
	refreshStats := runPhase(*ops, *concurrency, 6151, func(r *rand.Rand, _ int) error {
		state := &states[r.Intn(len(states))]
		state.mu.Lock()
		defer state.mu.Unlock()

		res, err := engine.Refresh(ctx, state.refresh)
		if err != nil {
			return err
		}
		state.access = res.Tokens.AccessToken
		state.refresh = res.Tokens.RefreshToken
		return nil
	})

	fmt.Println("---- results ----")
	printStats("validate", validateStats)
	printStats("refresh", refreshStats)

	snap := engine.MetricsSnapshot()
	fmt.Printf("engine: sessions_created=%d refresh_success=%d refresh_failure=%d\n",
		snap.Counters[craveAuth.MetricSessionCreated],
		snap.Counters[craveAuth.MetricRefreshSuccess],
		snap.Counters[craveAuth.MetricRefreshFailure],
	)
}

// seed creates n active client accounts sharing one password hash and logs
// each of them in.
func seed(ctx context.Context, engine *craveAuth.Engine, repo *testkit.UserRepo, cfg craveAuth.Config, n, concurrency int) ([]sessionState, error) {
	hasher, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
		MinLength:   cfg.Password.MinLength,
	})
	if err != nil {
		return nil, err
	}
	hash, err := hasher.Hash(seedPassword)
	if err != nil {
		return nil, err
	}

	states := make([]sessionState, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			email := fmt.Sprintf("load-%d@example.com", i)
			if err := repo.Create(gctx, &craveAuth.User{
				UserID:       fmt.Sprintf("CRAVE-EVENTS-load-%d", i),
				Name:         "Load Test",
				Email:        email,
				Phone:        "9876543210",
				PasswordHash: hash,
				Role:         craveAuth.RoleClient,
				Status:       craveAuth.StatusActive,
				CreatedAt:    time.Now().UTC(),
			}); err != nil {
				return err
			}
			res, err := engine.Login(gctx, craveAuth.RoleClient, email, seedPassword)
			if err != nil {
				return fmt.Errorf("login %s: %w", email, err)
			}
			states[i].access = res.Tokens.AccessToken
			states[i].refresh = res.Tokens.RefreshToken
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return states, nil
}

func runPhase(ops, concurrency int, seedMul int64, op func(r *rand.Rand, i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seedMul))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r, i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
