// Package backend defines the Runner interface that executes a scheduled task
// on one execution path, the registry that maps paths to runners, and a runner
// that shells out to a configured command.
package backend
