package logging

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

const envVar = "LOGLEVEL"

type tagLevel struct {
	tag   string
	level Level
}

var (
	directivesMu sync.RWMutex
	tagLevels    []tagLevel
)

func init() {
	if err := Configure(os.Getenv(envVar)); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid %s: %s\n", envVar, err)
	}
}

// Configure parses comma-separated "tag=level" directives. A directive without
// "tag=" sets the default level. Directives replace any earlier configuration,
// but loggers already derived with WithTag keep the level they were created
// with unless Refresh is called on them.
func Configure(directives string) error {
	var levels []tagLevel
	level := Info
	var firstErr error

	for _, d := range strings.Split(directives, ",") {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		v := strings.SplitN(d, "=", 2)
		l, err := parseLevel(v[len(v)-1])
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("directive '%s': %s", d, err)
			}
			continue
		}
		if len(v) == 1 {
			level = l
		} else {
			levels = append(levels, tagLevel{v[0], l})
		}
	}

	directivesMu.Lock()
	tagLevels = levels
	defaultLevel = level
	directivesMu.Unlock()

	DefaultLogger.Level = level
	return firstErr
}

func determineLevel(tag string, fallback Level) Level {
	directivesMu.RLock()
	defer directivesMu.RUnlock()

	for _, e := range tagLevels {
		if e.tag == tag {
			return e.level
		}
	}
	return fallback
}
