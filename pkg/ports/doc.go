/*
Package ports defines the driven ports (interfaces) of the intake engine.

These interfaces decouple the core from external implementations, allowing
the engine to run with various session backends and collaborator adapters.

# Key Interfaces

  - SessionStore: persists and loads Sessions.
  - DistributedLocker: coordinates access to one session across replicas.
  - Deduplicator: remembers transport message IDs already processed.
  - CaseStore, EvidenceStore, AddressLookup, IdentityVerifier, Assistant,
    Transcriber, Mailer, EventPublisher: collaborators consumed by the flows.
  - Sender: delivers outbound renderables to the chat transport.
*/
package ports
