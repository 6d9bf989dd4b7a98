package scheduler

import "remindbot/pkg/logx"

// Bulk variants apply the single-job operation to each id in order and
// collect per-id outcomes. A job vanishing between listing and acting
// is expected (concurrent deletion), so failures never abort the run.

func (s *Service) PauseAll(ids []string) Report {
	return s.applyAll("pause", ids, s.Pause)
}

func (s *Service) ResumeAll(ids []string) Report {
	return s.applyAll("resume", ids, s.Resume)
}

func (s *Service) RemoveAll(ids []string) Report {
	return s.applyAll("remove", ids, s.Remove)
}

func (s *Service) applyAll(op string, ids []string, fn func(string) OpResult) Report {
	var rep Report
	for _, id := range ids {
		switch fn(id) {
		case OpApplied:
			rep.Applied = append(rep.Applied, id)
		case OpAlreadyInState:
			rep.Skipped = append(rep.Skipped, id)
		case OpNotFound:
			rep.NotFound = append(rep.NotFound, id)
			s.log.Warn("bulk op: job not found", logx.String("op", op), logx.String("job", id))
		}
	}
	if len(rep.NotFound) > 0 {
		s.log.Warn("bulk op finished with missing jobs",
			logx.String("op", op),
			logx.Int("total", rep.Total()),
			logx.Int("missing", len(rep.NotFound)))
	}
	return rep
}
