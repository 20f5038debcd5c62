// Package core defines the shared language of the leapphon system.
//
// This package contains:
//   - Domain entities (FeatureVector, PhonemeEntry, Inventory, Languoid)
//   - Run bookkeeping types (Run, RunStatus, Snapshot)
//   - Service interfaces (Adapter, Store)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
