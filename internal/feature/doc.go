// Package feature evaluates feature-flag policies against caller-supplied
// contexts.
//
// Policies are JSON documents stored as string option values under
// "features.{name}" keys. Evaluation walks segments in declared order,
// selects the first whose conditions all match, and then applies that
// segment's percentage rollout against a stable identity bucket. Rollout
// bucketing is a cross-language contract: the same context and identity
// fields must bucket identically in every client, so the hash and its
// reduction are fixed and must not change.
package feature
