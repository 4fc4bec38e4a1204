// Package repository defines the domain model for discovered version-control
// repositories and the scan tasks derived from them.
package repository

// Repository is the scan-task descriptor produced for a repository that has at
// least one commit. It carries everything a downstream scanner worker needs to
// clone and inspect the repository. Values are immutable once built and travel
// as JSON on the wire.
type Repository struct {
	ProjectKey      string   `json:"project_key"`
	RepositoryID    string   `json:"repository_id"`
	RepositoryName  string   `json:"repository_name"`
	RepositoryURL   string   `json:"repository_url"`
	VCSInstanceName string   `json:"vcs_instance"`
	LatestCommit    string   `json:"latest_commit"`
	Branches        []string `json:"branches"`
}

// SimpleRepository is a lightweight projection of a discovered repository used
// only for the active-repository report. It is derived from the full provider
// listing, independent of whether the repository has commits.
type SimpleRepository struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ActiveRepositories represents everything currently visible in the VCS for a
// project. It is sent wholesale to the backend once per collection run so the
// backend can deactivate repositories no longer found in the VCS.
//
// Invariant: the report includes every repository returned by the listing
// call, including those with no commits. Those are excluded only from scan
// dispatch, not from the active-set report.
type ActiveRepositories struct {
	ProjectKey      string             `json:"project_key"`
	VCSInstanceName string             `json:"vcs_instance_name"`
	Repositories    []SimpleRepository `json:"repositories"`
}

// CollectionTask is the unit of work consumed by the collector: discover the
// repositories of one project on one VCS instance and dispatch the ones with
// new work for scanning.
type CollectionTask struct {
	ProjectKey      string `json:"project_key"`
	VCSInstanceName string `json:"vcs_instance_name"`
}
