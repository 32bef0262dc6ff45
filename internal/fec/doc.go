// Package fec downloads individual contributions from the OpenFEC schedule_a
// endpoint and turns them into raw tables for the cleaner.
//
// The endpoint pages with a keyset cursor (last_index plus
// last_contribution_receipt_date). Fetcher walks that cursor under an hourly
// call quota, pausing for the configured interval when the quota is spent,
// and reports each page through a checkpoint callback so an interrupted
// download can resume where it stopped.
package fec
