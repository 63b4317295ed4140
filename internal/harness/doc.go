// Package harness runs query scenarios end to end against a scratch
// database and checks the materialized trees.
//
// # Scenario Format
//
// Scenarios are YAML files. Paths are relative to the scenario file.
//
//	name: address_tree
//	description: "Addresses with their city, places and comments"
//	fixture: ../fixtures/places.sql
//	schema: ../fixtures/places.yaml
//	query: ../queries/address.yaml
//	assertions:
//	  - type: root_count
//	    count: 4
//	  - type: path_equals
//	    path: 0.city.name
//	    value: Moscow
//	  - type: path_len
//	    path: 0.places
//	    count: 2
//	  - type: sql_contains
//	    text: "LEFT JOIN city c"
//
// # Assertion Types
//
//   - root_count: number of root entities
//   - path_equals: value at a path equals the expected value
//   - path_len: length of the array at a path
//   - sql_contains: the diagnostic SQL contains a fragment
//
// Paths are dot separated. Numeric segments index arrays, the first segment
// indexes the roots.
//
// # Determinism
//
// Every scenario gets a fresh SQLite file in a temporary directory, so runs
// do not see each other. Trees are compared through canonical JSON, which
// makes golden files byte-stable.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/address_tree.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, e := range result.Errors {
//	        log.Println(e)
//	    }
//	}
package harness
