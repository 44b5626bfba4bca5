/*
Package intake is a conversational engine that registers cybercrime
complaints over a chat channel.

A user moves through guided flows: registration, complaint filing,
evidence collection, status checks, account-freeze inquiries and general
questions. Each flow is a total order of steps that capture one piece of
data at a time, validating it and enriching it through external
collaborators (postal code directory, identity verification, case store,
evidence store, language assistant).

# Usage

Wire an engine with the collaborators you have and a Sender for replies,
then feed it inbound messages:

	engine, err := intake.New(intake.Services{Address: lookup}, sender)
	if err != nil {
		log.Fatal(err)
	}
	err = engine.Route(ctx, domain.Message{UserKey: "+919876543210", Payload: "hi"})

Sessions live in memory unless a store is passed with WithSessionStore;
the pkg/adapters tree holds file, redis and SQL backends as well as the
webhook and websocket transports used by cmd/intake.
*/
package intake
