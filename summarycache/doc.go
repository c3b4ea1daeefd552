// Package summarycache stores computed summaries keyed by the exact
// message range, retention level and provider that produced them, so
// repeated compactions of an unchanged transcript never re-issue
// provider calls.
package summarycache
