package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	cache "github.com/krisalay/tagged-cache"
	"github.com/krisalay/tagged-cache/config"
	"github.com/krisalay/tagged-cache/expiration"
)

type benchOptions struct {
	goroutines int
	opsPerG    int
	keys       int
	tags       int
}

func newBenchCommand(load func() (config.Config, error)) *cobra.Command {
	opts := benchOptions{}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure mixed get/put/compute/tag-clear throughput",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.goroutines <= 0 || opts.opsPerG <= 0 || opts.keys <= 0 || opts.tags <= 0 {
				return errors.New("goroutines, ops, keys and tags must be positive")
			}
			cfg, err := load()
			if err != nil {
				return err
			}
			log, err := cfg.Logger()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			c, stop, err := config.NewCache[string](cfg, log)
			if err != nil {
				return err
			}
			defer stop()

			return runBench(cmd.Context(), cmd.OutOrStdout(), c, cfg.Policy(), opts, log)
		},
	}

	cmd.Flags().IntVar(&opts.goroutines, "goroutines", 200, "concurrent workers")
	cmd.Flags().IntVar(&opts.opsPerG, "ops", 5000, "operations per worker")
	cmd.Flags().IntVar(&opts.keys, "keys", 100000, "distinct keys")
	cmd.Flags().IntVar(&opts.tags, "tags", 64, "distinct tags")
	return cmd
}

type benchCounters struct {
	gets, hits, puts, computes, clears atomic.Int64
}

func runBench(ctx context.Context, out io.Writer, c *cache.Cache[string], policy expiration.Policy, opts benchOptions, log *zap.Logger) error {
	keys := make([]string, opts.keys)
	for i := range keys {
		keys[i] = uuid.NewString()
	}
	tags := make([]string, opts.tags)
	for i := range tags {
		tags[i] = "tag-" + uuid.NewString()
	}

	fmt.Fprintln(out, "\n================ CACHE LOAD BENCHMARK =================")
	fmt.Fprintln(out, "CONFIG")
	fmt.Fprintln(out, "---------------------------------")
	fmt.Fprintln(out, "Keys         :", opts.keys)
	fmt.Fprintln(out, "Tags         :", opts.tags)
	fmt.Fprintln(out, "Goroutines   :", opts.goroutines)
	fmt.Fprintln(out, "Ops/Goroutine:", opts.opsPerG)
	fmt.Fprintln(out, "Policy       :", policy)
	fmt.Fprintln(out, "---------------------------------")

	// ---------------- Preload ----------------
	for i, key := range keys {
		if err := c.Put(key, i, policy, tags[i%len(tags)]); err != nil {
			return err
		}
	}
	log.Debug("preload complete", zap.Int("keys", len(keys)))

	// ---------------- Load Test ----------------
	var n benchCounters
	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < opts.goroutines; w++ {
		rng := rand.New(rand.NewPCG(uint64(w), uint64(start.UnixNano())))
		g.Go(func() error {
			for j := 0; j < opts.opsPerG; j++ {
				if j%1024 == 0 && ctx.Err() != nil {
					return ctx.Err()
				}
				if err := benchOp(c, policy, keys, tags, rng, &n); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	duration := time.Since(start)
	totalOps := opts.goroutines * opts.opsPerG

	fmt.Fprintln(out, "\n================ RESULTS =================")
	fmt.Fprintf(out, "Total Operations : %d\n", totalOps)
	fmt.Fprintf(out, "Gets / Hits      : %d / %d\n", n.gets.Load(), n.hits.Load())
	fmt.Fprintf(out, "Puts             : %d\n", n.puts.Load())
	fmt.Fprintf(out, "Computes         : %d\n", n.computes.Load())
	fmt.Fprintf(out, "Tag Clears       : %d\n", n.clears.Load())
	fmt.Fprintf(out, "Entries Left     : %d\n", c.Len())
	fmt.Fprintf(out, "Total Time       : %v\n", duration)
	fmt.Fprintf(out, "Throughput       : %.2f ops/sec\n", float64(totalOps)/duration.Seconds())
	fmt.Fprintln(out, "=========================================")
	return nil
}

// benchOp runs one operation; the mix is read heavy with rare tag clears.
func benchOp(c *cache.Cache[string], policy expiration.Policy, keys, tags []string, rng *rand.Rand, n *benchCounters) error {
	key := keys[rng.IntN(len(keys))]
	tag := tags[rng.IntN(len(tags))]

	switch r := rng.IntN(1000); {
	case r < 700:
		n.gets.Add(1)
		if _, ok := c.Get(key); ok {
			n.hits.Add(1)
		}
	case r < 850:
		n.puts.Add(1)
		return c.Put(key, r, policy, tag)
	case r < 999:
		n.computes.Add(1)
		_, err := c.GetOrCompute(key, policy, func() (any, error) { return r, nil }, tag)
		return err
	default:
		n.clears.Add(1)
		c.RemoveByTag(tag)
	}
	return nil
}
