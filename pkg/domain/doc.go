/*
Package domain contains the core models of the intake engine.

It defines the conversational session, the inbound message and outbound
renderable shapes, the evidence vocabulary and the error taxonomy shared by
every component. This package is kept pure and free of I/O, following
Hexagonal Architecture principles.

# Key Entities

  - Session: where a user is (flow and step), what they answered (Data) and how to go back (History).
  - Message: one inbound delivery from the chat transport.
  - Renderable: one outbound prompt (text, choice, checklist or confirmation).
  - EvidenceItem: one piece of proof requested during document collection.
*/
package domain
