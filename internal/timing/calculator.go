package timing

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Step is one named point of the roast, Offset minutes from the end time.
// Offsets are usually negative.
type Step struct {
	Step   string `yaml:"step" json:"step"`
	Offset int    `yaml:"offset" json:"offset"`
}

// Entry is one row of a computed schedule.
type Entry struct {
	Step string `json:"step"`
	Time string `json:"time"`
}

// File is the on-disk timings document.
type File struct {
	End   Clock  `yaml:"end"`
	Steps []Step `yaml:"steps"`
}

// Calculator holds the current end time and the fixed list of steps.
// Steps never change after construction; End changes only via SetEnd or
// Apply. All access is serialized by one mutex.
type Calculator struct {
	mu    sync.Mutex
	end   Clock
	steps []Step
}

// New returns a calculator over a private copy of steps.
func New(end Clock, steps []Step) *Calculator {
	return &Calculator{end: end, steps: append([]Step(nil), steps...)}
}

// Load reads a timings file. A missing or malformed file is an error.
func Load(path string) (*Calculator, error) {
	b, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read timings %s: %w", path, err)
	}
	f, err := Decode(b)
	if err != nil {
		return nil, fmt.Errorf("parse timings %s: %w", path, err)
	}
	return New(f.End, f.Steps), nil
}

// Decode parses a timings document. The end field is required.
func Decode(b []byte) (File, error) {
	var raw struct {
		End   *Clock `yaml:"end"`
		Steps []Step `yaml:"steps"`
	}
	if err := yaml.NewDecoder(bytes.NewReader(b)).Decode(&raw); err != nil {
		return File{}, err
	}
	if raw.End == nil {
		return File{}, fmt.Errorf("missing end")
	}
	return File{End: *raw.End, Steps: raw.Steps}, nil
}

// Encode serializes a timings document.
func Encode(f File) ([]byte, error) {
	if f.Steps == nil {
		f.Steps = []Step{}
	}
	return yaml.Marshal(f)
}

// CurrentEnd formats the end time as "HH:MM".
func (c *Calculator) CurrentEnd() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.end.String()
}

// End returns the end time.
func (c *Calculator) End() Clock {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.end
}

// SetEnd parses strict "HH:MM" and replaces the end time. On error the
// stored end time is left as it was.
func (c *Calculator) SetEnd(text string) error {
	end, err := ParseClock(text)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.end = end
	c.mu.Unlock()
	return nil
}

// Schedule returns one entry per step, in load order, at end+offset.
func (c *Calculator) Schedule() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scheduleLocked()
}

// Apply sets the end time and computes the schedule under a single lock
// acquisition, so the result always reflects the end time just set.
func (c *Calculator) Apply(text string) ([]Entry, error) {
	end, err := ParseClock(text)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.end = end
	return c.scheduleLocked(), nil
}

// Steps returns a copy of the configured steps.
func (c *Calculator) Steps() []Step {
	return append([]Step(nil), c.steps...)
}

func (c *Calculator) scheduleLocked() []Entry {
	out := make([]Entry, len(c.steps))
	for i, s := range c.steps {
		out[i] = Entry{Step: s.Step, Time: c.end.AddMinutes(s.Offset).String()}
	}
	return out
}
