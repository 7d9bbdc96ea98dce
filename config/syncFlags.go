package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Order-sync tunables. All env-driven so cashier terminals and the
// backoffice deployment can be tuned without a rebuild.
//
// - ORDER_SYNC_DEBOUNCE_SECONDS (default 10): minimum gap between
//   non-forced fetches for the same shift.
// - ORDER_SYNC_POLL_SECONDS (default 60): background poll interval.
// - ORDER_SYNC_ITEM_CONCURRENCY (default 8): parallel per-order item fetches.
// - ORDER_SYNC_RECONCILE_DELAY_SECONDS (default 3): delay before the
//   forced refresh that follows a cancellation request or decision.

func SyncDebounceWindow() time.Duration {
	return secondsFromEnv("ORDER_SYNC_DEBOUNCE_SECONDS", 10)
}

func SyncPollInterval() time.Duration {
	return secondsFromEnv("ORDER_SYNC_POLL_SECONDS", 60)
}

func SyncItemConcurrency() int {
	n := intValueFromEnv("ORDER_SYNC_ITEM_CONCURRENCY", 8)
	if n < 1 {
		n = 1
	}
	return n
}

func SyncReconcileDelay() time.Duration {
	return secondsFromEnv("ORDER_SYNC_RECONCILE_DELAY_SECONDS", 3)
}

func secondsFromEnv(key string, def int) time.Duration {
	return time.Duration(intValueFromEnv(key, def)) * time.Second
}

func intValueFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
