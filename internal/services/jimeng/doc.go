// Package jimeng talks to the Jimeng image generation web API: submit a
// draft generation request, poll its history record until a terminal state,
// and download the produced images.
//
// Submission is deliberately a single network call with no internal retry;
// the retry controller owns that policy because a blind resubmission spends
// provider quota twice. Polling is idempotent and bounded by the configured
// deadline.
package jimeng
