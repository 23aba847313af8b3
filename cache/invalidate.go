package cache

import (
	"context"
	"sort"
)

// Invalidate removes the given fingerprints from both tiers and bumps their
// invalidation epochs, so any computation already in flight for them will
// discard its write.
func (o *Orchestrator) Invalidate(ctx context.Context, fingerprints ...string) error {
	if len(fingerprints) == 0 {
		return nil
	}

	o.bumpEpochs(fingerprints)
	for _, fp := range fingerprints {
		o.memory.Delete(fp)
	}
	o.invalidations.Add(uint64(len(fingerprints)))

	if err := o.durable.Delete(ctx, fingerprints...); err != nil {
		return err
	}
	return nil
}

// InvalidateByDimensions drops every cached entry whose scope matches all of
// the given dimension values, across both tiers. The affected fingerprints
// come from the dimension-tag indexes recorded at write time, not from a
// keyspace scan. Returns the number of distinct fingerprints invalidated.
func (o *Orchestrator) InvalidateByDimensions(ctx context.Context, dims map[string]string) (int, error) {
	if len(dims) == 0 {
		return 0, nil
	}
	tags := make([]string, 0, len(dims))
	for name, value := range dims {
		tags = append(tags, DimensionTag(name, value))
	}
	sort.Strings(tags)

	seen := make(map[string]struct{})
	for _, fp := range o.memory.FingerprintsBy(tags) {
		seen[fp] = struct{}{}
	}

	durableFPs, err := o.durable.FingerprintsBy(ctx, tags)
	if err != nil {
		// Still invalidate what the in-process index knows about before
		// reporting the backend failure.
		o.invalidateLocal(mapKeys(seen))
		return 0, err
	}
	for _, fp := range durableFPs {
		seen[fp] = struct{}{}
	}

	fingerprints := mapKeys(seen)
	if len(fingerprints) == 0 {
		return 0, nil
	}
	if err := o.Invalidate(ctx, fingerprints...); err != nil {
		return 0, err
	}
	o.logger.Info("invalidated cached analyses by dimensions",
		"dimensions", dims, "count", len(fingerprints))
	return len(fingerprints), nil
}

func (o *Orchestrator) invalidateLocal(fingerprints []string) {
	if len(fingerprints) == 0 {
		return
	}
	o.bumpEpochs(fingerprints)
	for _, fp := range fingerprints {
		o.memory.Delete(fp)
	}
}

func mapKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
