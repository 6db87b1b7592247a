// Package harness runs PX conformance scenarios end to end.
//
// # Scenario Format
//
// Scenarios are YAML files with an inline catalog, a list of steps and
// final-state assertions:
//
//	name: purchase_and_refund
//	description: "What this scenario validates"
//	async: false
//	catalog:
//	  event: { slug: ev, name: Ev, features: [px], px_start: 5 }
//	  abilities:
//	    - { key: sword, name: Sword, cost: 3 }
//	  characters:
//	    - { key: aria, name: Aria }
//	steps:
//	  - action: purchase
//	    character: aria
//	    ability: sword
//	  - action: refund
//	    character: aria
//	    ability: sword
//	    expect:
//	      removed: [sword]
//	assertions:
//	  - character: aria
//	    px_avail: 5
//	    owned: []
//
// Entities are referenced by catalog key. Steps go through engine.Writer,
// so relationship changes trigger the same recomputes as production
// writes; purchase and refund call the calculator directly.
//
// # Deterministic Testing
//
// Every scenario runs against a fresh in-memory SQLite store with a
// deterministic job sequence and "job-N" ids. In async mode the queue is
// drained on the calling goroutine after every step, so traces are stable
// and suitable for golden snapshots (RunWithGolden).
package harness
