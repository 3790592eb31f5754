package feed

import (
	"sync"
	"testing"

	"github.com/agisfl/agisfl/proto"
	"github.com/agisfl/agisfl/store"
)

type capturePublisher struct {
	mu      sync.Mutex
	updates []publishedUpdate
}

type publishedUpdate struct {
	channel string
	data    any
}

func (p *capturePublisher) Publish(channel string, data any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, publishedUpdate{channel: channel, data: data})
}

func (p *capturePublisher) byChannel(channel string) []any {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []any
	for _, u := range p.updates {
		if u.channel == channel {
			out = append(out, u.data)
		}
	}
	return out
}

func TestDemoFeed_EmitThreatRecordsAndPublishes(t *testing.T) {
	pub := &capturePublisher{}
	st := store.New()
	f := NewDemoFeed(pub, st)

	f.emitThreat()

	if st.ThreatCount() != 1 {
		t.Errorf("expected threat in store, got %d", st.ThreatCount())
	}

	published := pub.byChannel(proto.ChannelThreats)
	if len(published) != 1 {
		t.Fatalf("expected 1 threat publish, got %d", len(published))
	}
	threat, ok := published[0].(proto.ThreatEvent)
	if !ok {
		t.Fatalf("expected ThreatEvent payload, got %T", published[0])
	}
	if threat.ID == "" || threat.DetectedAt == "" {
		t.Error("expected published threat to carry store-assigned fields")
	}
	if threat.Category != demoCategories[0] {
		t.Errorf("expected first category %q, got %q", demoCategories[0], threat.Category)
	}
}

func TestDemoFeed_SevereThreatsOpenIncidents(t *testing.T) {
	pub := &capturePublisher{}
	st := store.New()
	f := NewDemoFeed(pub, st)

	// Severity is random, so emit enough threats that at least one severe
	// event is overwhelmingly likely.
	for i := 0; i < 100; i++ {
		f.emitThreat()
	}

	incidents := st.Incidents()
	if len(incidents) == 0 {
		t.Fatal("expected at least one incident from severe threats")
	}
	for _, inc := range incidents {
		if inc.Severity != "high" && inc.Severity != "critical" {
			t.Errorf("expected only severe incidents, got %q", inc.Severity)
		}
		if inc.ThreatID == "" {
			t.Error("expected incident to reference its threat")
		}
	}

	if got := pub.byChannel(proto.ChannelIncidents); len(got) != len(incidents) {
		t.Errorf("expected %d incident publishes, got %d", len(incidents), len(got))
	}
}

func TestDemoFeed_FLRoundsConverge(t *testing.T) {
	pub := &capturePublisher{}
	f := NewDemoFeed(pub, store.New())

	for i := 0; i < 20; i++ {
		f.emitFLRound()
	}

	rounds := pub.byChannel(proto.ChannelFLRounds)
	if len(rounds) != 20 {
		t.Fatalf("expected 20 rounds, got %d", len(rounds))
	}

	first := rounds[0].(proto.FLRound)
	last := rounds[19].(proto.FLRound)
	if last.Round != 20 {
		t.Errorf("expected round counter at 20, got %d", last.Round)
	}
	if last.Accuracy <= first.Accuracy {
		t.Errorf("expected accuracy to climb, first %.4f last %.4f", first.Accuracy, last.Accuracy)
	}
	if last.Participants < 3 {
		t.Errorf("expected at least 3 participants, got %d", last.Participants)
	}
}
