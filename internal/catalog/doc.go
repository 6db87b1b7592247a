// Package catalog reads event rulebooks from YAML or CUE files and imports
// them into the store.
//
// A catalog file names every entity by a string key instead of a row id.
// Abilities, modifiers and rules reference abilities by key; requirements
// reference options as "question.option". Keys are resolved to ids during
// Import.
//
// Loading is two-stage:
//   - Load/Parse decodes a file. CUE files are unified with the embedded
//     #Catalog schema first, so structural errors carry CUE positions.
//   - Validate reports semantic errors (dangling references, duplicate keys,
//     unknown operations, negative costs) without failing fast.
//
// Prerequisite cycles are never rejected. AnalyzeCycles reports them as
// warnings because an ability on a cycle is simply never available.
package catalog
