package main

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cache "github.com/krisalay/tagged-cache"
	"github.com/krisalay/tagged-cache/config"
	"github.com/krisalay/tagged-cache/expiration"
)

func newDemoCommand(load func() (config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Walk through puts, expiration, single-flight and tag invalidation",
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			return runDemo(cmd.OutOrStdout(), c, log)
		},
	}
}

func runDemo(out io.Writer, c *cache.Cache[string], log *zap.Logger) error {
	section := func(title string) {
		fmt.Fprintf(out, "\n==================== %s ====================\n", title)
	}
	show := func(label, key string) {
		v, ok := c.Get(key)
		fmt.Fprintf(out, "CACHE  → %s %s = %v (hit=%t)\n", label, key, v, ok)
	}

	// ====================================================
	section("1) PUT / GET")
	if err := c.Put("a", "alpha", expiration.Absolute(time.Minute), "letters"); err != nil {
		return err
	}
	show("GET", "a")
	show("GET", "missing")

	// ====================================================
	section("2) ABSOLUTE EXPIRATION")
	if err := c.Put("x", "temp-value", expiration.Absolute(200*time.Millisecond)); err != nil {
		return err
	}
	fmt.Fprintln(out, "CACHE  → PUT x (absolute 200ms)")
	time.Sleep(300 * time.Millisecond)
	show("GET after deadline", "x")

	// ====================================================
	section("3) SLIDING EXPIRATION")
	if err := c.Put("s", "session", expiration.Sliding(200*time.Millisecond)); err != nil {
		return err
	}
	for i := 0; i < 4; i++ {
		time.Sleep(100 * time.Millisecond)
		show("GET while in use", "s")
	}
	time.Sleep(300 * time.Millisecond)
	show("GET after idling", "s")

	// ====================================================
	section("4) SINGLE-FLIGHT")
	var calls int
	var mu sync.Mutex
	producer := func() (string, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		time.Sleep(50 * time.Millisecond)
		return "beta", nil
	}

	wg := sync.WaitGroup{}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			v, err := cache.GetOrCompute(c, "b", expiration.Absolute(time.Minute), producer, "letters")
			fmt.Fprintf(out, "GOROUTINE-%d → GET b = %v (err=%v)\n", id, v, err)
		}(i)
	}
	wg.Wait()
	fmt.Fprintf(out, "PRODUCER → called %d time(s)\n", calls)

	// ====================================================
	section("5) FAILED COMPUTATION")
	_, err := c.GetOrCompute("f", expiration.Absolute(time.Minute), func() (any, error) {
		return nil, errors.New("backend unavailable")
	})
	fmt.Fprintf(out, "CACHE  → GET-OR-COMPUTE f err = %v\n", err)
	show("GET", "f")

	// ====================================================
	section("6) TAG INVALIDATION")
	c.RemoveByTag("letters")
	fmt.Fprintln(out, "CACHE  → REMOVE-BY-TAG letters")
	show("GET", "a")
	show("GET", "b")

	// ====================================================
	section("7) SWEEP")
	fmt.Fprintf(out, "CACHE  → entries before sweep = %d\n", c.Len())
	c.Sweep()
	fmt.Fprintf(out, "CACHE  → entries after sweep  = %d\n", c.Len())

	log.Info("demo finished")
	return nil
}
