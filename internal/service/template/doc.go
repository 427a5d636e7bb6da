// Package template implements newsletter template management.
//
// Templates are the reusable (subject, content) pairs campaigns reference.
// The dispatcher captures template content at send time, so edits here
// never rewrite delivery history. LatestUpdated feeds the monthly
// scheduler's template selection.
package template
