package debug

import (
	"fmt"
	"log"
	"time"
)

// Output prints a timestamped debug line if debugging is enabled.
func Output(enabled bool, format string, args ...interface{}) {
	if enabled {
		timestamp := time.Now().Format("15:04:05.000")
		message := fmt.Sprintf(format, args...)
		log.Printf("[%s] %s", timestamp, message)
	}
}

// Timing measures and logs execution time of an operation if debugging is
// enabled. Use as: defer debug.Timing(enabled, "load yelp")().
func Timing(enabled bool, operation string) func() {
	if !enabled {
		return func() {}
	}

	start := time.Now()
	Output(enabled, "Starting: %s", operation)

	return func() {
		duration := time.Since(start)
		Output(enabled, "Completed: %s (took %v)", operation, duration)
	}
}

// Progress prints a stage progress line every interval records. Always on:
// long batch stages report progress regardless of the debug flag.
func Progress(stage string, done, total, interval int) {
	if interval <= 0 || done%interval != 0 {
		return
	}
	if total > 0 {
		fmt.Printf("%s: %d/%d (%.1f%%)\n", stage, done, total, float64(done)/float64(total)*100)
	} else {
		fmt.Printf("%s: %d processed\n", stage, done)
	}
}
