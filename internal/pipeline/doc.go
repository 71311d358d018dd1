// Package pipeline sequences the extraction steps for one job.
//
// Step order:
// - dilate -> merge -> gmwmi -> intersect -> extract -> manifest
//
// - dilate, merge, gmwmi, intersect, and manifest run only when the job asks
// for them or supplies two ROIs.
//
// The first failing step aborts the job. Artifacts already written stay on disk.
package pipeline
