package darktable

import (
	"regexp"
	"strconv"
)

// Timing is one module's processing time from darktable's perf output.
type Timing struct {
	Module  string
	Seconds float64
}

var (
	// [dev_pixelpipe] took 0.012 secs (0.041 CPU) processed `exposure' on CPU, blended on CPU [export]
	moduleTimingPattern = regexp.MustCompile("took ([0-9.]+) secs .*processed `([^']+)'")
	// [dev_process_export] pixel pipeline processing took 1.234 secs (4.567 CPU)
	pipelineTotalPattern = regexp.MustCompile(`\[dev_process_export\] pixel pipeline processing took ([0-9.]+) secs`)
)

func parseTiming(line string) (Timing, bool) {
	m := moduleTimingPattern.FindStringSubmatch(line)
	if m == nil {
		return Timing{}, false
	}
	secs, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Timing{}, false
	}
	return Timing{Module: m[2], Seconds: secs}, true
}

func parsePipelineTotal(line string) (float64, bool) {
	m := pipelineTotalPattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	secs, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return secs, true
}
