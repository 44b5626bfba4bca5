/*
Package flow is the machinery behind the guided dialogs.

A Definition is a total order of Steps. Each step carries a prompt, a
validator, the modalities it accepts, the fields it owns and an optional skip
rule evaluated against the data captured so far. Continue walks forward to the
next step whose skip rule does not hold; when none is left the flow is done and
Successor names the flow to hand off to.

Flows whose steps depend on the session (evidence collection walks the
checklist held in data) declare an Order function instead of relying on
declaration order.

	b := flow.New(domain.FlowStatusCheck, "Status check")
	b.Step("caseId").
		Text("Enter your case ID").
		Validate(lookupCase)
	b.Next(domain.FlowCompletion)
	catalog := flow.NewCatalog(b.Build())
	if err := catalog.Validate(); err != nil { ... }
*/
package flow
