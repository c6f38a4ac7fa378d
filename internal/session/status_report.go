package session

import "askd/pkg/types"

// Snapshot returns a read-only view of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		ID:         s.id,
		State:      s.state,
		ModelID:    s.modelID,
		Progress:   s.progress,
		Generating: len(s.genCh) > 0,
	}
	if s.err != nil {
		snap.Err = s.err.Error()
		snap.ErrKind, _ = LoadErrorKindOf(s.err)
	}
	return snap
}

// Status builds the status payload for the HTTP API.
func (s *Session) Status() types.StatusResponse {
	snap := s.Snapshot()
	resp := types.StatusResponse{
		SessionID:  snap.ID,
		ModelID:    snap.ModelID,
		State:      string(snap.State),
		Ready:      snap.State == StateReady,
		Loading:    snap.State == StateLoading,
		Generating: snap.Generating,
		Error:      snap.Err,
		ErrorKind:  string(snap.ErrKind),
		Retryable:  snap.ErrKind.Retryable(),
	}
	if snap.State == StateLoading {
		lp := ToLoadProgress(snap.Progress)
		resp.Progress = &lp
	}
	return resp
}

// ToLoadProgress converts aggregate progress to its wire form.
func ToLoadProgress(p Progress) types.LoadProgress {
	out := types.LoadProgress{
		Progress: p.Percent,
		File:     p.ResourceID,
		Text:     p.Text,
		Status:   string(p.Status),
		Loaded:   p.Loaded,
		Total:    p.Total,
	}
	for _, f := range p.Files {
		out.Files = append(out.Files, types.FileProgress{File: f.ResourceID, Loaded: f.Loaded, Total: f.Total})
	}
	return out
}
