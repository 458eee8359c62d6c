// Package harness runs YAML scenarios against a fresh in-memory engine.
//
// A scenario is a list of steps, each one resolver operation on an
// identifier:
//
//	name: task_lifecycle
//	description: insert, finish and delete a task
//	flow:
//	  - op: insert
//	    target: /tasks
//	    values: {title: Buy milk}
//	    expect: {identifier: /tasks/1}
//	  - op: update
//	    target: /tasks/1
//	    values: {finished: true}
//	    expect: {count: 1}
//	assertions:
//	  - type: notified
//	    identifier: /tasks/1
//
// Every step is recorded in the trace together with the change
// notifications it caused. Notifications are delivered synchronously by
// the resolver, so the trace is deterministic and can be compared against
// a golden file with RunWithGolden.
package harness
