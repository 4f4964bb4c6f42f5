// Package task discovers and runs workspace tasks and reports their starts.
//
// # Descriptors
//
// A Descriptor is the observed form of a running task: its definition map,
// display name, source label, execution, and scope. Descriptors are what the
// monitor matches criteria against. Descriptor.Fields serializes one into a
// plain value tree field by field.
//
// # Host
//
// Host is the contract the monitor consumes: a subscription to task starts
// and a snapshot of running tasks. Runner implements it by executing tasks
// with os/exec and delivering start notifications one at a time, in order,
// from a single goroutine.
//
// # Discovery
//
// Discovery walks each workspace folder and asks registered Sources to turn
// build files (package.json, Taskfile.yml, Makefile, .tasklaunch/tasks.json)
// into Tasks bound to that folder.
package task
