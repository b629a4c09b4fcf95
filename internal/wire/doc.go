// Package wire encodes the textual records an encrypted topic keeps on the
// ledger: the topic configuration (one generation per key rotation), the
// message envelope, the encrypted topic data and the topic memo.
//
// A generation is
//
//	<encryptedTopicData>#<algorithm>#<keySize>#<p1>#<p2>#...
//
// where each participant pN is <A>_<B> for RSA or <A>_<B>_<C> for Kyber.
// Generations are joined with ',' oldest first. Every field is standard
// base64, which never contains '#', '_' or ','.
package wire
