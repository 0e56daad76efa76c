// Package batch scans several targets concurrently.
//
// Each target gets its own session.Controller, so targets never share state
// and the at-most-one-in-flight rule holds per target. Concurrency is bounded
// with errgroup.SetLimit.
package batch
