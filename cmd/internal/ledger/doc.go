// Package ledger implements the balance/transaction consistency engine.
//
// The Store owns account balances and exposes them only through lock-guarded
// atomic units (Tx). The Engine validates and applies deposits, withdrawals,
// and transfers against a Store, appending exactly one immutable transaction
// record per committed operation.
//
// Transfers lock both balance rows in ascending identifier order regardless of
// direction, so opposing concurrent transfers between the same pair of accounts
// cannot deadlock.
//
// Amounts and balances are exact fixed-point decimals (scale 4). No float ever
// touches balance arithmetic.
package ledger
