// Package memorypressure samples process and system memory usage on a
// timer and classifies it into a Level the scanner uses for
// backpressure. Grounded on the memstats command (service/stats.go),
// which already reads runtime.MemStats and keeps an hdrhistogram of
// observed values (depotstats); this package turns that one-shot
// diagnostic print into a recurring sampler with a queryable level.
package memorypressure

import (
	"bufio"
	"context"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/codahale/hdrhistogram"
	"github.com/golang/glog"
)

// Level classifies how close the process is to memory exhaustion.
type Level int32

const (
	LevelLow Level = iota
	LevelNormal
	LevelElevated
	LevelHigh
	LevelCritical
)

func (l Level) String() string {
	switch l {
	case LevelLow:
		return "low"
	case LevelNormal:
		return "normal"
	case LevelElevated:
		return "elevated"
	case LevelHigh:
		return "high"
	case LevelCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Thresholds are the used/total ratios at which each Level begins.
type Thresholds struct {
	Normal   float64
	Elevated float64
	High     float64
	Critical float64
}

// DefaultThresholds matches the usage bands: <50% low, ≥50% normal,
// ≥70% elevated, ≥85% high, ≥95% critical.
var DefaultThresholds = Thresholds{Normal: 0.50, Elevated: 0.70, High: 0.85, Critical: 0.95}

// Monitor periodically samples memory usage and exposes the current
// Level, plus a histogram of sampled usage ratios (recorded scaled by
// 1e6) for reporting.
type Monitor struct {
	thresholds Thresholds
	interval   time.Duration

	level   int32 // atomic Level
	ratio   uint64
	hist    *hdrhistogram.Histogram
	histCap int64

	quit chan struct{}
}

// New constructs a Monitor that samples every interval (a sensible
// default is a few seconds; spec leaves the exact cadence unspecified).
func New(interval time.Duration, thresholds Thresholds) *Monitor {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Monitor{
		thresholds: thresholds,
		interval:   interval,
		hist:       hdrhistogram.New(0, 1<<40, 3),
		quit:       make(chan struct{}),
	}
}

// Start runs the sampling loop until ctx is cancelled or Stop is called.
func (m *Monitor) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		m.sample()
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.quit:
				return
			case <-ticker.C:
				m.sample()
			}
		}
	}()
}

// Stop halts the sampling loop.
func (m *Monitor) Stop() {
	select {
	case <-m.quit:
	default:
		close(m.quit)
	}
}

// Level returns the most recently sampled pressure level.
func (m *Monitor) Level() Level {
	return Level(atomic.LoadInt32(&m.level))
}

// Ratio returns the most recently sampled used/total memory ratio as a
// fraction between 0 and 1; it is stored scaled by 1000 in an integer
// for lock-free atomic access.
func (m *Monitor) Ratio() float64 {
	return float64(atomic.LoadUint64(&m.ratio)) / 1000.0
}

func (m *Monitor) sample() {
	ratio, err := sampleRatio()
	if err != nil {
		glog.Warningf("memorypressure: failed to sample memory usage: %v", err)
		return
	}

	atomic.StoreUint64(&m.ratio, uint64(ratio*1000))
	m.hist.RecordValue(int64(ratio * 1e6))

	level := LevelLow
	switch {
	case ratio >= m.thresholds.Critical:
		level = LevelCritical
	case ratio >= m.thresholds.High:
		level = LevelHigh
	case ratio >= m.thresholds.Elevated:
		level = LevelElevated
	case ratio >= m.thresholds.Normal:
		level = LevelNormal
	}
	atomic.StoreInt32(&m.level, int32(level))

	if glog.V(2) {
		glog.Infof("memorypressure: ratio=%.3f level=%s", ratio, level)
	}
}

// sampleRatio combines the Go runtime's own heap usage with whatever
// the OS reports as available, falling back to runtime-only figures
// on platforms without /proc/meminfo.
func sampleRatio() (float64, error) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	avail, total, err := procMeminfo()
	if err != nil || total == 0 {
		// No /proc/meminfo (non-Linux, or sandboxed): approximate using
		// the runtime's own notion of how much heap it has claimed vs.
		// how much it is actively using.
		if ms.HeapSys == 0 {
			return 0, nil
		}
		return float64(ms.HeapInuse) / float64(ms.HeapSys), nil
	}

	used := total - avail
	return float64(used) / float64(total), nil
}

// procMeminfo returns (MemAvailable, MemTotal) in kB, as reported by
// the kernel on Linux.
func procMeminfo() (avail, total uint64, err error) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		switch {
		case strings.HasPrefix(line, "MemTotal:"):
			total = parseMeminfoLine(line)
		case strings.HasPrefix(line, "MemAvailable:"):
			avail = parseMeminfoLine(line)
		}
	}
	return avail, total, sc.Err()
}

func parseMeminfoLine(line string) uint64 {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0
	}
	v, _ := strconv.ParseUint(fields[1], 10, 64)
	return v
}

// RecommendedBatchSize maps level to a fraction of defaultSize, floored
// at a per-level minimum so throttling never starves a batch entirely:
// critical -> max(default/10, 50), high -> max(default/4, 100),
// elevated -> max(default/2, 250), normal and low -> default.
func RecommendedBatchSize(level Level, defaultSize int) int {
	switch level {
	case LevelCritical:
		return maxInt(defaultSize/10, 50)
	case LevelHigh:
		return maxInt(defaultSize/4, 100)
	case LevelElevated:
		return maxInt(defaultSize/2, 250)
	default:
		return defaultSize
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// WaitForRelief blocks until the Monitor's level drops to or below
// threshold, ctx is cancelled, or the poll interval elapses enough
// times to notice a change; it polls rather than subscribing since
// Level changes are infrequent and polling keeps this dependency-free.
func (m *Monitor) WaitForRelief(ctx context.Context, threshold Level) error {
	if m.Level() <= threshold {
		return nil
	}
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if m.Level() <= threshold {
				return nil
			}
		}
	}
}
