// Package stepid mints the globally unique, time ordered identifiers
// assigned to provenance steps when they are added to a record.
//
// The generator is a snowflake-style scheme: a millisecond timestamp, a
// worker id derived from the generating process's private ip address, and a
// per-millisecond sequence counter are packed into a single uint64. The
// packed value is then rendered as a short, URL-safe string so it can live
// directly in a step's "id" field on the wire.
//
// The following properties hold for generated ids:
//
//   - ids are time ordered: later calls to NextID on the same Minter never
//     produce a smaller value.
//   - ids are unique across every Minter sharing a WorkerCIDR allocation,
//     provided each is configured with a distinct PodIP.
//   - the packed value is a full uint64 built only from the timestamp,
//     worker id and sequence fields; it carries no random bits, so its
//     uniqueness rests on those fields rather than on probability.
package stepid
