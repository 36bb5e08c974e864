// Package pipeline runs a dependents scan as a sequence of steps.
//
// A scan of one repository is a Run that passes through:
//   - WalkStep: follows the dependents listing and accumulates entries
//   - RankStep: filters by the star threshold and sorts the result
//   - SaveStep: stores the finished run in the history database
//
// BatchProcessor scans several repositories, one pipeline per repository,
// with errgroup bounding how many walks run at once. Each walk stays
// strictly sequential.
package pipeline
