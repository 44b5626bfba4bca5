package intake_test

import (
	"context"
	"fmt"
	"log"

	"github.com/aretw0/intake"
	"github.com/aretw0/intake/pkg/adapters/memory"
	"github.com/aretw0/intake/pkg/domain"
)

// ExampleNew wires an engine with in-memory collaborators and greets a user.
func ExampleNew() {
	outbox := memory.NewOutbox()
	engine, err := intake.New(intake.Services{Address: stubLookup{}}, outbox)
	if err != nil {
		log.Fatal(err)
	}

	if err := engine.Route(context.Background(), domain.Message{UserKey: "+919876543210", Payload: "hi"}); err != nil {
		log.Fatal(err)
	}

	replies := outbox.Drain("+919876543210")
	menu := replies[len(replies)-1]
	fmt.Println(menu.Body)
	for _, o := range menu.Options {
		fmt.Println("-", o.ID)
	}
	// Output:
	// How can we help you today?
	// - newComplaint
	// - checkStatus
	// - more
}
