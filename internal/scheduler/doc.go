// Package scheduler owns the per-tenant push timers and the tick pipeline.
//
// # Model
//
// One cron runner carries a constant-interval entry per running tenant.
// A fire enqueues the tenant id on a bounded queue consumed by a small
// worker pool; the tick itself iterates the tenant's repositories strictly
// in order, pushing each with a bounded timeout and reporting every
// outcome independently. A failing repository never aborts the rest of
// the cycle.
//
// # Overlap
//
// If a tenant's interval is shorter than its cycle, the next fire would
// overlap the previous one. Ticks for a tenant whose previous tick is
// still in flight are skipped and counted.
//
// # Lifecycle
//
// Start/Stop control the shared machinery; StartTenant/StopTenant control
// individual timers. Stopping a tenant cancels future fires only; an
// in-flight cycle completes and may still report afterwards.
package scheduler
