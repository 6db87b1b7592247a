// Package model provides the domain types of the PX progression engine.
//
// This package contains type definitions and small set helpers only. All
// other internal packages import model; model imports nothing internal.
//
// Key design constraints:
//   - Every entity belongs to exactly one event (the tenancy boundary)
//   - IDs are int64 row ids assigned by the store
//   - Relationship edges are IDSet values, never slices of structs
//   - Decimal amounts travel as text and are parsed by the rule engine
//   - All JSON tags use snake_case
package model
