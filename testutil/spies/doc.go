// Package spies provides test doubles that record what the snapshot finder reports
// through its logging, metrics and tracing interfaces.
package spies
