package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v4/process"
)

// DefaultProcessInterval is used when NewProcessCollector gets a zero interval.
const DefaultProcessInterval = 15 * time.Second

// ProcessSample is one CPU and memory reading of the server process.
type ProcessSample struct {
	PID        int32     `json:"pid"`
	CPUPercent float64   `json:"cpu_percent"`
	MemoryMB   float64   `json:"memory_mb"`
	MemoryRSS  uint64    `json:"memory_rss"`
	NumThreads int32     `json:"num_threads"`
	NumFDs     int32     `json:"num_fds,omitempty"` // Unix only
	Timestamp  time.Time `json:"timestamp"`
}

// ProcessCollector samples the running server with gopsutil and exports
// the readings as gauges.
type ProcessCollector struct {
	pid      int32
	interval time.Duration

	mu   sync.Mutex
	proc *process.Process
	last ProcessSample

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	cpuPercent prometheus.Gauge
	memoryMB   prometheus.Gauge
	numThreads prometheus.Gauge
	numFDs     prometheus.Gauge
}

func processGauge(name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "recipebook",
		Subsystem: "process",
		Name:      name,
		Help:      help,
	})
}

// NewProcessCollector samples the current process every interval.
func NewProcessCollector(interval time.Duration) *ProcessCollector {
	if interval <= 0 {
		interval = DefaultProcessInterval
	}
	return &ProcessCollector{
		pid:        int32(os.Getpid()), // #nosec G115 -- pids fit in int32
		interval:   interval,
		stopCh:     make(chan struct{}),
		cpuPercent: processGauge("cpu_percent", "CPU usage percentage of the recipebook process."),
		memoryMB:   processGauge("memory_mb", "Resident memory of the recipebook process in MB."),
		numThreads: processGauge("num_threads", "Number of OS threads of the recipebook process."),
		numFDs:     processGauge("num_fds", "Number of open file descriptors (Unix only)."),
	}
}

// Interval returns the sampling period.
func (c *ProcessCollector) Interval() time.Duration { return c.interval }

// Register adds the gauges to r. When another collector already registered
// them, the existing gauges are reused.
func (c *ProcessCollector) Register(r prometheus.Registerer) error {
	gauges := []*prometheus.Gauge{&c.cpuPercent, &c.memoryMB, &c.numThreads}
	if runtime.GOOS != "windows" {
		gauges = append(gauges, &c.numFDs)
	}
	for _, g := range gauges {
		if err := r.Register(*g); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				return err
			}
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				*g = existing
			}
		}
	}
	return nil
}

// Sample reads the process once and updates the gauges.
func (c *ProcessCollector) Sample() (ProcessSample, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.proc == nil {
		p, err := process.NewProcess(c.pid)
		if err != nil {
			return ProcessSample{}, fmt.Errorf("open process %d: %w", c.pid, err)
		}
		c.proc = p
	}

	// the first CPU reading has no previous sample to diff against
	cpu, err := c.proc.CPUPercent()
	if err != nil {
		slog.Debug("process cpu percent", "pid", c.pid, "err", err)
		cpu = 0
	}
	mem, err := c.proc.MemoryInfo()
	if err != nil {
		return ProcessSample{}, fmt.Errorf("memory info: %w", err)
	}
	threads, err := c.proc.NumThreads()
	if err != nil {
		slog.Debug("process thread count", "pid", c.pid, "err", err)
	}

	s := ProcessSample{
		PID:        c.pid,
		CPUPercent: cpu,
		MemoryMB:   float64(mem.RSS) / 1024 / 1024,
		MemoryRSS:  mem.RSS,
		NumThreads: threads,
		Timestamp:  time.Now(),
	}
	if runtime.GOOS != "windows" {
		if fds, err := c.proc.NumFDs(); err == nil {
			s.NumFDs = fds
		}
	}

	c.cpuPercent.Set(s.CPUPercent)
	c.memoryMB.Set(s.MemoryMB)
	c.numThreads.Set(float64(s.NumThreads))
	c.numFDs.Set(float64(s.NumFDs))
	c.last = s
	return s, nil
}

// Last returns the most recent sample, zero before the first one.
func (c *ProcessCollector) Last() ProcessSample {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Start samples in the background until ctx is done or Stop is called.
func (c *ProcessCollector) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			if _, err := c.Sample(); err != nil {
				slog.Debug("process sample failed", "err", err)
			}
			select {
			case <-ctx.Done():
				return
			case <-c.stopCh:
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop ends background sampling and waits for it.
func (c *ProcessCollector) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.wg.Wait()
}
