// Package model defines the core data structures used throughout dependents.
//
// This package contains the following main types:
//   - Dependent: A repository that depends on the scanned repository, with its star count
//   - Accumulator: The insertion-ordered address to star count mapping built during a walk
//   - ResultSet: Dependents ordered by descending star count
//   - StopReason: Why a walk over the dependents pages ended
//   - Report: The result of one run against one repository
//   - Comparison: The difference between two runs of the same repository
//
// Models live in their own package so that crawler, pipeline, report and
// database can share them without import cycles. All of them serialize to
// JSON for report output and history storage.
package model
