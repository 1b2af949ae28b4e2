package publisher

import "social-publisher/models"

// Report is the aggregated outcome of one fan-out.
type Report struct {
	// Results holds one entry per attempted platform, in fan-out order.
	Results []models.PublishResult
	// Status is published when at least one platform succeeded, draft otherwise.
	Status          models.PostStatus
	PlatformPostIDs map[models.Platform]string
}

// Succeeded lists the platforms that accepted the post.
func (r *Report) Succeeded() []models.Platform {
	return models.SucceededPlatforms(r.Results)
}

// Failed returns the failed results.
func (r *Report) Failed() []models.PublishResult {
	var out []models.PublishResult
	for _, res := range r.Results {
		if !res.Success {
			out = append(out, res)
		}
	}
	return out
}

// Failure classifies the outcome: nil when every platform succeeded,
// *models.PartialPublishError or *models.TotalPublishError otherwise.
func (r *Report) Failure() error {
	failed := r.Failed()
	if len(failed) == 0 {
		return nil
	}
	succeeded := r.Succeeded()
	if len(succeeded) == 0 {
		return &models.TotalPublishError{Failed: failed}
	}
	return &models.PartialPublishError{Succeeded: succeeded, Failed: failed}
}
