// Package call implements the orchestration core for a live fact-checked
// voice call.
//
// The package coordinates five components around a single event loop:
//
//   - Session: owns the loop; transport events, timer firings and verdict
//     completions are serialized onto it as thunks
//   - TranscriptIngestor: gates which finalized utterances trigger a check
//   - DetectionDispatcher: single-flight verdict dispatch with deterministic
//     timeout recovery
//   - CallStateCoordinator: call lifecycle, mute choreography and the
//     interrupt flow (unmute + speak the challenge)
//   - ConversationLedger / AlertScheduler: ordered transcript history and
//     the auto-hiding detection banner
//
// # Data Flow
//
//	Transport events → Session loop → Ingestor → Dispatcher → verdict service
//	                                      │            │
//	                                   Ledger ← results/timeouts (ticket-gated)
//	                                      │
//	                                 Alert + Coordinator.Interrupt
//
// All mutable state is touched only from the session loop, so the ledger,
// dispatcher and coordinator carry no locks of their own.
package call
