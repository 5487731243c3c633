// Package export builds the obfuscated spatial bundle a mobile client
// bundles at build time: a geohash-bucketed, zlib-compressed, XOR-stream
// obfuscated spatial payload plus a deduplicated image payload, joined
// from a run's fused, content, and score outputs via the shared
// resolver.
package export
