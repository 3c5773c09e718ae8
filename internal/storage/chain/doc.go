// Package chain computes and checks the keyed tags that link journal records.
//
// Each record's tag is MAC(prev_tag || body), where body is the record
// encoding without its own tag. The first record links to a seed derived
// from the key, so an attacker without the key can neither forge a record
// nor rebuild the chain after editing one.
package chain
