package ports

import "github.com/ewilliams-labs/jamhub/internal/core/domain"

// AnalysisScheduler queues a freshly added song for background feature and
// genre analysis. Scheduling must never block the caller; an overloaded
// implementation drops the request.
type AnalysisScheduler interface {
	ScheduleAnalysis(areaID string, song domain.Song)
}
