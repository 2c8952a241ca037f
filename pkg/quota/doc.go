// Package quota charges system-managed provider quota when an assistant
// message is created.
//
// The Handler reacts to a message-created notification, picks the quota
// configuration matching the provider's current quota type, computes the
// amount used (tokens or one call), and asks a Store to apply a guarded
// decrement. Missing configuration and exhausted quota are silent skips.
package quota
