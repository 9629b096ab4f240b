// Package asyncevents implements an in-process asynchronous event bus.
//
// A Topic owns a Subscription Registry and dispatches published events to
// subscribers under one of four delivery disciplines: Emit (fire-and-forget),
// Publish (await all, aggregate outcomes), Execute (await all, fail on any
// rejection) and Deliver (await per-subscriber acknowledgment with a timeout).
//
// The bus never inspects payloads, never persists events across process
// restarts, and makes no ordering promises across topics. See the
// package-level design document (SPEC_FULL.md in the module root) for the
// full contract.
package asyncevents
