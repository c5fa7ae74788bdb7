package core

import (
	"fmt"
	"strings"
	"sync/atomic"
)

const AVG_COUNT uint8 = 30

// Metrics averages the UI loop's frame time over AVG_COUNT frames.
type Metrics struct {
	FrameAVGCounter    uint8
	MStimes            [AVG_COUNT]float64
	MSavg              float64
	Frames             int32
	AccumulatedFrameMS float64
	FPS                float64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) Update(frameElapsedTime float64) {
	frameMS := frameElapsedTime * 1000.0
	m.MStimes[m.FrameAVGCounter] = frameMS
	if m.FrameAVGCounter == AVG_COUNT-1 {
		m.MSavg = 0
		for i := uint8(0); i < AVG_COUNT; i++ {
			m.MSavg += m.MStimes[i]
		}
		m.MSavg /= float64(AVG_COUNT)
	}
	m.FrameAVGCounter++
	m.FrameAVGCounter %= AVG_COUNT

	m.AccumulatedFrameMS += frameMS
	if m.AccumulatedFrameMS > 1000 {
		m.FPS = float64(m.Frames)
		m.AccumulatedFrameMS -= 1000
		m.Frames = 0
	}
	m.Frames++
}

func (m *Metrics) Frame() (float64, float64) {
	return m.FPS, m.MSavg
}

/**
 * @brief Live-instance counts per resource kind, used for leak detection.
 * Incremented on creation and decremented on disposal. Safe for concurrent use.
 */
type InstanceCounters struct {
	counts [resourceKindCount]atomic.Int64
}

func NewInstanceCounters() *InstanceCounters {
	return &InstanceCounters{}
}

func (c *InstanceCounters) Inc(kind ResourceKind) {
	if c == nil {
		return
	}
	c.counts[kind].Add(1)
}

func (c *InstanceCounters) Dec(kind ResourceKind) {
	if c == nil {
		return
	}
	c.counts[kind].Add(-1)
}

func (c *InstanceCounters) Live(kind ResourceKind) int64 {
	if c == nil {
		return 0
	}
	return c.counts[kind].Load()
}

// Total is the number of live instances over every kind.
func (c *InstanceCounters) Total() int64 {
	var total int64
	for k := ResourceKind(0); k < resourceKindCount; k++ {
		total += c.Live(k)
	}
	return total
}

func (c *InstanceCounters) String() string {
	parts := make([]string, 0, int(resourceKindCount))
	for k := ResourceKind(0); k < resourceKindCount; k++ {
		parts = append(parts, fmt.Sprintf("%s=%d", k, c.Live(k)))
	}
	return strings.Join(parts, " ")
}
