// Package harness provides conformance testing for the canonicalization
// engine.
//
// The harness loads YAML rewrite scenarios, canonicalizes their input
// graphs, and checks the declared expectations against the run.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	input: |
//	  core.module {
//	    %0 = arith.const {value = 2 : i64} : i64
//	    ...
//	  }
//	config:
//	  direction: bottom-up
//	  region_simplify: true
//	  max_iterations: 10
//	  max_rewrites: -1
//	  verify_each: false
//	filters:
//	  enabled: [arith.mul-zero]
//	  disabled: [arith.add-reassoc]
//	expect:
//	  outcome: converged
//	  rewrites: 2
//	  output: |
//	    core.module {
//	      ...
//	    }
//	  op_count:
//	    arith.const: 1
//	  op_absent: [arith.mul]
//
// Only name, description, input, and expect.outcome are required.
// Omitted config fields keep the driver defaults.
//
// # Expectations
//
// The expect block supports:
//
//   - outcome: the run's stop reason (converged, iteration-limit, rewrite-limit)
//   - rewrites: exact total rewrite count
//   - output: exact printed form of the canonicalized graph
//   - op_count: per-op occurrence counts in the final graph
//   - op_absent: ops that must not survive canonicalization
//
// # Enforced Properties
//
// Beyond the declared expectations, every run re-verifies the graph
// after canonicalization, and converged runs are canonicalized a second
// time to prove idempotence: the rerun must report zero rewrites and
// leave the fingerprint unchanged.
//
// # Usage
//
// Load and run a scenario:
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/mul_zero.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
