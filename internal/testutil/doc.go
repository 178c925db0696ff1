// Package testutil contains fluent builders shared by package tests: threads
// for memory store assertions and scripted model responses for agent runs.
package testutil
