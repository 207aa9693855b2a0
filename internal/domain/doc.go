// Package domain contains the core entities of topicmap.
//
// It has no dependencies on infrastructure concerns (JSON parsing, path
// queries, expression evaluation, logging) and only describes what a mapping
// rule is and what the mapper produces.
//
// # Entities
//
//   - [Mapping]: one configured rule binding a topic and a value source to one
//     (default layout) or two (signed layout) output fields
//   - [Record]: a measurement/field/value triple handed to a time-series sink
//
// Variants that the configuration can express are decided once, when a
// Mapping is built with [NewMapping], and never re-derived per message.
package domain
