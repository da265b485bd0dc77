// Package provrecord implements the provenance record container: the
// canonical data-for-signing construction, the nested sign/verify
// recursion, step life-cycle management, and the merge semantics applied
// when one signer incorporates records received from others.
//
// A record moves through two distinct types rather than one mutable
// struct: a *Builder* accumulates pending steps and embedded records, and
// Sign consumes a Builder to produce a *Sealed* record. A Sealed record may
// be Verified, and/or re-opened into a fresh Builder via Extend so it can
// be added to and signed again by the next participant in the chain.
package provrecord
