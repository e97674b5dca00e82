package board

import "github.com/rivergate/tally/internal/domain"

// BucketName returns the column a project belongs to: a synthetic completed
// column when the project carries a terminal completion, otherwise its current
// workflow stage.
func BucketName(project domain.Project) string {
	switch project.Completion {
	case domain.CompletionSuccess:
		return SuccessColumnName
	case domain.CompletionFailure:
		return FailureColumnName
	default:
		return project.CurrentStatus
	}
}

// GroupProjects partitions projects into per-column buckets. The partition is
// idempotent and order-preserving: projects keep their relative input order
// within a bucket, and unknown buckets are created on demand.
func GroupProjects(projects []domain.Project) map[string][]domain.Project {
	buckets := make(map[string][]domain.Project, 8)
	for _, project := range projects {
		name := BucketName(project)
		buckets[name] = append(buckets[name], project)
	}
	return buckets
}
