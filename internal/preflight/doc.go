// Package preflight provides readiness checks for the binaries, directories,
// and chat credentials mediarelay depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll and CheckSystemDeps before accepting updates
//     and refuses to start when a required check fails.
//   - The CLI "mediarelay check" command renders every result as a table.
package preflight
