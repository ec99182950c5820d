// Package payload defines the data unit moved between reactive nodes.
//
// A Payload is a sealed tagged union: primitive value, text, tag, boolean,
// a structural collection (list with stable element identities, or object),
// a flushed wrapper that bypasses transform stages until unwrapped, or an
// incremental delta.
//
// Deltas are only valid against the exact prior version they were computed
// from. Applying a delta across a version gap fails with VersionGapError,
// which the engine resolves by re-emitting the full value - never by a
// best-effort partial apply.
//
// Two payload states express "nothing here" and are not errors:
//
//   - Absent: the node has no value yet (absence is a valid state, not a
//     block).
//   - Skip: a body explicitly declined to produce output for this firing;
//     the engine suppresses fan-out.
//
// Serialization is RFC 8785 canonical JSON (sorted keys by UTF-16 code
// units, NFC-normalized strings, no floats). Canonical bytes feed the
// content-addressed idempotency keys on messages and the snapshot record
// format.
package payload
