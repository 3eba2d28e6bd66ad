// Package ledger persists run history in SQLite.
//
// Every fetch records one row in runs and one row per attempted download in
// downloads. The history command reads the same database, so past runs
// survive across invocations and machines syncing the destination tree can
// tell what a previous run actually fetched.
package ledger
