package session

// progressAggregator folds per-resource events into one percentage.
// It is not safe for concurrent use; each load flight serializes calls on its own mutex.
type progressAggregator struct {
	files map[string]*FileProgress
	order []string
}

func newProgressAggregator() *progressAggregator {
	return &progressAggregator{files: make(map[string]*FileProgress)}
}

// add records ev and returns the aggregate. Counters for a resource never
// move backwards: a late or reordered event reporting less than already
// seen keeps the previous value.
func (a *progressAggregator) add(ev ProgressEvent) Progress {
	if ev.ResourceID != "" {
		fp, ok := a.files[ev.ResourceID]
		if !ok {
			fp = &FileProgress{ResourceID: ev.ResourceID}
			a.files[ev.ResourceID] = fp
			a.order = append(a.order, ev.ResourceID)
		}
		if ev.Loaded > fp.Loaded {
			fp.Loaded = ev.Loaded
		}
		if ev.Total > fp.Total {
			fp.Total = ev.Total
		}
	}

	var loaded, total int64
	files := make([]FileProgress, 0, len(a.order))
	for _, id := range a.order {
		fp := a.files[id]
		loaded += fp.Loaded
		total += fp.Total
		files = append(files, *fp)
	}

	var pct float64
	if total > 0 {
		pct = float64(loaded) / float64(total) * 100
	} else {
		pct = ev.Fraction * 100
	}
	pct = clampPercent(pct)

	status := ProgressRunning
	if ev.Done {
		status = ProgressDone
		pct = 100
	}
	p := Progress{
		Percent:    pct,
		ResourceID: ev.ResourceID,
		Text:       ev.Text,
		Status:     status,
		Loaded:     loaded,
		Total:      total,
	}
	if len(files) > 0 {
		p.Files = files
	}
	return p
}

func clampPercent(p float64) float64 {
	switch {
	case p != p: // NaN
		return 0
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}
