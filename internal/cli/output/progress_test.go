package output

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func fixedBar(buf *bytes.Buffer, elapsed time.Duration) *ProgressBar {
	bar := NewProgressBar(buf, "bench")
	start := time.Unix(1000, 0)
	bar.started = start
	bar.now = func() time.Time { return start.Add(elapsed) }
	return bar
}

func TestProgressBar_Update(t *testing.T) {
	var buf bytes.Buffer
	bar := fixedBar(&buf, 2*time.Second)

	bar.Update(50, 100)
	out := buf.String()
	for _, want := range []string{"bench", " 50%", "(50/100)", "25 rec/s"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %q", want, out)
		}
	}
}

func TestProgressBar_Increment(t *testing.T) {
	var buf bytes.Buffer
	bar := fixedBar(&buf, time.Second)
	bar.SetTotal(4000)
	bar.Increment(1500)
	bar.Increment(500)

	if bar.current != 2000 {
		t.Errorf("current = %d, want 2000", bar.current)
	}
	if !strings.Contains(buf.String(), "2.0k rec/s") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestProgressBar_Unbounded(t *testing.T) {
	var buf bytes.Buffer
	bar := fixedBar(&buf, 0)
	bar.Increment(7)
	if !strings.Contains(buf.String(), "7 records - rec/s") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestProgressBar_Finish(t *testing.T) {
	var buf bytes.Buffer
	bar := fixedBar(&buf, time.Second)
	bar.SetTotal(10)
	bar.Increment(3)
	bar.Finish()

	if bar.current != 10 {
		t.Errorf("current = %d, want 10", bar.current)
	}
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Error("Finish should end the line")
	}
}

func TestFormatRate(t *testing.T) {
	if got := formatRate(3_000_000, time.Second); got != "3.0M rec/s" {
		t.Errorf("formatRate = %q", got)
	}
}
