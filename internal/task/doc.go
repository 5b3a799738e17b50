// Package task defines the data model shared by the push controllers.
//
// The package holds the per-tick values that flow through a trial:
//
//   - [Observation]: object and end-effector positions plus an optional
//     contact-force reading
//   - [Goal]: planar target position and the table height it sits on
//   - [ErrorState]: goal minus object in the horizontal plane
//   - [Action]: fixed-length command vector sent to the environment
//   - [Environment]: the simulation collaborator driven by a trial
//
// Positions are in meters and use [r3.Vector] from github.com/golang/geo.
package task
