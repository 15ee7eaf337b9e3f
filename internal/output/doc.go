// Package output renders requirement reports and unreviewed-commit
// lists for humans (text) and tooling (json).
package output
