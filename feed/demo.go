package feed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/agisfl/agisfl/proto"
	"github.com/agisfl/agisfl/store"
)

// demoCategories cycle so the simulated event stream looks like a real
// intrusion-detection pipeline rather than random noise.
var demoCategories = []string{
	"port_scan",
	"brute_force",
	"dos",
	"sql_injection",
	"malware_beacon",
	"data_exfiltration",
}

var demoSeverities = []string{"low", "medium", "high", "critical"}

// DemoFeed simulates the detection pipeline: threat events on an interval,
// incidents raised from the severe ones, and a slowly converging
// federated-learning training run.
type DemoFeed struct {
	Pub      Publisher
	Store    *store.Store
	Interval time.Duration

	catIndex int
	round    int
	accuracy float64
}

func NewDemoFeed(pub Publisher, st *store.Store) *DemoFeed {
	return &DemoFeed{
		Pub:      pub,
		Store:    st,
		Interval: 3 * time.Second,
		accuracy: 0.62,
	}
}

// Run emits one event immediately, then repeats on the configured interval
// until ctx is cancelled.
func (f *DemoFeed) Run(ctx context.Context) {
	slog.Info("demo mode active, simulating detection pipeline", "interval", f.Interval)

	if !sleepOrCancel(ctx, time.Second) {
		return
	}
	f.emitThreat()

	t := time.NewTicker(f.Interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			f.emitThreat()
			if f.round == 0 || rand.IntN(3) == 0 {
				f.emitFLRound()
			}
		}
	}
}

// emitThreat records and publishes a simulated threat. Critical and high
// severity threats also open an incident on the incidents channel.
func (f *DemoFeed) emitThreat() {
	category := demoCategories[f.catIndex%len(demoCategories)]
	f.catIndex++

	severity := demoSeverities[rand.IntN(len(demoSeverities))]
	threat := f.Store.AddThreat(proto.ThreatEvent{
		Category: category,
		Severity: severity,
		SourceIP: fmt.Sprintf("203.0.113.%d", rand.IntN(254)+1),
		TargetIP: fmt.Sprintf("10.0.0.%d", rand.IntN(254)+1),
		Score:    0.5 + rand.Float64()*0.5,
	})
	f.Pub.Publish(proto.ChannelThreats, threat)

	if severity == "high" || severity == "critical" {
		inc := f.Store.AddIncident(proto.Incident{
			Title:    fmt.Sprintf("%s from %s", category, threat.SourceIP),
			Severity: severity,
			ThreatID: threat.ID,
		})
		f.Pub.Publish(proto.ChannelIncidents, inc)
	}
}

// emitFLRound advances the simulated training run. Accuracy climbs toward
// a ceiling with a little jitter so charts look like a real run.
func (f *DemoFeed) emitFLRound() {
	f.round++
	f.accuracy += (0.98 - f.accuracy) * 0.08
	jitter := (rand.Float64() - 0.5) * 0.01

	round := proto.FLRound{
		Round:        f.round,
		Accuracy:     f.accuracy + jitter,
		Loss:         1.0 - f.accuracy + jitter,
		Participants: 3 + rand.IntN(5),
		Timestamp:    proto.NowTS(),
	}
	f.Pub.Publish(proto.ChannelFLRounds, round)
}

func sleepOrCancel(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
