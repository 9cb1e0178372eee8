package testcond

import (
	"fmt"
	"time"
)

// WaitForCondition polls eval until it returns true or timeout elapses.
// Meant for asynchronous assertions in tests.
func WaitForCondition(eval func() bool, interval time.Duration, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if eval() {
			return nil
		}
		select {
		case <-timer.C:
			return fmt.Errorf("timeout waiting for condition after %v", timeout)
		case <-ticker.C:
		}
	}
}
