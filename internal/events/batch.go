package events

import (
	"fmt"
	"sort"
	"time"

	"vulcancal/internal/log"
	"vulcancal/internal/model"
	"vulcancal/internal/record"
)

// Report summarizes one normalization pass.
type Report struct {
	Kind    model.Kind         `json:"kind"`
	Total   int                `json:"total"`
	Built   int                `json:"built"`
	Skipped map[SkipReason]int `json:"skipped,omitempty"`
}

// SkippedTotal is the number of records that produced no event.
func (r Report) SkippedTotal() int {
	n := 0
	for _, c := range r.Skipped {
		n += c
	}
	return n
}

func (r *Report) skip(reason SkipReason) {
	if r.Skipped == nil {
		r.Skipped = make(map[SkipReason]int)
	}
	r.Skipped[reason]++
}

// Normalize builds every item of one kind, drops duplicates and returns
// the events sorted by start. A record that cannot be built is counted
// in the report and never stops the batch.
func Normalize(kind model.Kind, items []record.Record, opts Options) ([]model.Event, Report) {
	b := NewBuilder(opts)
	rep := Report{Kind: kind, Total: len(items)}
	out := make([]model.Event, 0, len(items))
	seen := make(map[string]struct{}, len(items))

	for i, item := range items {
		res := b.buildSafe(kind, item)
		if !res.OK() {
			rep.skip(res.Skip)
			log.Debug("skipping record", "kind", kind, "index", i, "reason", res.Skip)
			continue
		}
		key := Key(res.Event)
		if _, dup := seen[key]; dup {
			rep.skip(SkipDuplicate)
			log.Debug("skipping record", "kind", kind, "index", i, "reason", SkipDuplicate, "uid", res.Event.UID)
			continue
		}
		seen[key] = struct{}{}
		out = append(out, res.Event)
	}
	rep.Built = len(out)

	Sort(out, b.Location())
	return out, rep
}

// buildSafe confines a failure in one record to that record.
func (b *Builder) buildSafe(kind model.Kind, item record.Record) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			log.Debug("record builder panicked", "kind", kind, "panic", fmt.Sprint(r))
			res = skipped(SkipMalformed)
		}
	}()
	return b.Build(kind, item)
}

// Sort orders events by normalized start, keeping input order for ties.
func Sort(evs []model.Event, loc *time.Location) {
	sort.SliceStable(evs, func(i, j int) bool {
		return evs[i].Start.Instant(loc).Before(evs[j].Start.Instant(loc))
	})
}
