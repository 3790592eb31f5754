// Package feed produces the data that flows out on the dashboard
// channels: live host metrics and, in demo mode, simulated threats,
// incidents, and federated-learning rounds.
package feed

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	gnet "github.com/shirou/gopsutil/v4/net"

	"github.com/agisfl/agisfl/proto"
)

// Publisher broadcasts a dashboard update on a channel. Satisfied by
// *server.RealtimeServer.
type Publisher interface {
	Publish(channel string, data any)
}

// MetricsFeed samples host CPU, memory, disk, and network counters on a
// fixed interval and publishes them on the system_metrics channel.
type MetricsFeed struct {
	Pub      Publisher
	Interval time.Duration
}

func NewMetricsFeed(pub Publisher) *MetricsFeed {
	return &MetricsFeed{
		Pub:      pub,
		Interval: 5 * time.Second,
	}
}

// Run publishes one sample immediately, then repeats on the configured
// interval until ctx is cancelled.
func (f *MetricsFeed) Run(ctx context.Context) {
	f.sample(ctx)

	t := time.NewTicker(f.Interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			f.sample(ctx)
		}
	}
}

func (f *MetricsFeed) sample(ctx context.Context) {
	m := proto.SystemMetrics{Timestamp: proto.NowTS()}
	m.Hostname, _ = os.Hostname()

	if pcts, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(pcts) > 0 {
		m.CPUPercent = pcts[0]
	} else if err != nil {
		slog.Warn("cpu sample failed", "error", err)
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		m.MemoryPercent = vm.UsedPercent
	} else {
		slog.Warn("memory sample failed", "error", err)
	}

	if du, err := disk.UsageWithContext(ctx, "/"); err == nil {
		m.DiskPercent = du.UsedPercent
	} else {
		slog.Warn("disk sample failed", "error", err)
	}

	if counters, err := gnet.IOCountersWithContext(ctx, false); err == nil && len(counters) > 0 {
		m.BytesSent = counters[0].BytesSent
		m.BytesRecv = counters[0].BytesRecv
	} else if err != nil {
		slog.Warn("network sample failed", "error", err)
	}

	f.Pub.Publish(proto.ChannelSystemMetrics, m)
}
