// Package preflight verifies that the directories a command depends on are
// present and usable before any work starts.
//
// Checks return a Result instead of an error so that callers can render every
// failure at once (`hashtools config validate`) or abort on the first one
// (the consistency verifier refuses to start when a storage root is absent).
package preflight
