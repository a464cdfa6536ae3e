// Package preflight provides readiness checks for the external binary and
// filesystem paths rawsweep depends on.
//
// These checks run in two contexts:
//   - The sweep command calls RunAll before rendering so a missing source
//     directory or unwritable output fails fast instead of after the first
//     darktable launch.
//   - The CLI "rawsweep status" command shows every check.
//
// Dump directory checks only run when dump conversion is enabled.
package preflight
