// Package pipeline models which darktable stages run and with what
// parameters.
//
// A Pipeline keeps an {Enabled, Params} setting per configurable stage and
// resolves into encoded history entries. Disabled stages still resolve to
// their default parameter blocks because darktable rejects a history item
// without a valid, correctly sized params blob. Sweep helpers build value
// ranges and per-value pipeline copies, plus the back-to-front disable plan
// used to inspect each stage's contribution.
package pipeline
