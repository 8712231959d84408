package devbackend

import (
	"context"
	"math"
	"math/rand"
	"time"

	"degradation_monitor/internal/models"
)

// Synthetic series tuning.
const (
	timestampLayout = "2006-01-02T15:04:05"

	baseWorkTime   = 10.0 // minutes per job at day zero
	driftPerSample = 0.02 // slow degradation added per sample
	noiseAmplitude = 0.8
	spikeEvery     = 17  // every n-th sample gets a spike
	spikeHeight    = 6.0 // added on spike samples
	seedSamples    = 60  // samples per leaf created by Seed
	sampleSpacing  = 24 * time.Hour
)

// Feeder appends synthetic work records to every leaf and announces the change.
type Feeder struct {
	store *Store
	bus   *EventBus
	rng   *rand.Rand
	next  time.Time
	count int
}

// NewFeeder returns a feeder whose first sample is taken at start.
func NewFeeder(store *Store, bus *EventBus, start time.Time, seed int64) *Feeder {
	return &Feeder{
		store: store,
		bus:   bus,
		rng:   rand.New(rand.NewSource(seed)),
		next:  start.UTC().Truncate(time.Hour),
	}
}

// Seed writes an initial history of n samples per leaf without publishing.
func (f *Feeder) Seed(n int) {
	if n <= 0 {
		n = seedSamples
	}
	for i := 0; i < n; i++ {
		f.step()
	}
}

// Run ticks at the given interval until ctx is canceled.
func (f *Feeder) Run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			f.step()
			f.bus.Publish(models.PushEventDashboardUpdated, "")
		}
	}
}

// step appends one sample per leaf, spaced sampleSpacing apart.
func (f *Feeder) step() {
	ts := models.Timestamp(f.next.Format(timestampLayout))
	for i, leaf := range f.store.Leaves() {
		f.store.AppendRecords(leaf.ID, models.WorkRecord{
			RecordedAt: ts,
			WorkTime:   f.sample(i),
		})
	}
	f.next = f.next.Add(sampleSpacing)
	f.count++
}

func (f *Feeder) sample(leafIdx int) float64 {
	v := baseWorkTime + float64(leafIdx) + driftPerSample*float64(f.count)
	v += (f.rng.Float64()*2 - 1) * noiseAmplitude
	if f.count > 0 && f.count%spikeEvery == 0 {
		v += spikeHeight
	}
	return math.Round(v*100) / 100
}
