// Package action defines the units of work an action chain executes.
//
// An Action pairs a Kind from a closed handler set with a fixed-length
// argument list and a lead-in delay. Arity is checked when the action is
// built, so a malformed action never reaches a chain.
//
// Handlers run through Invoke with a restricted Context: the step cursor,
// chain length, retry attempt and the output boundary (pins and sound). A
// handler reports what the chain should do next with an Outcome:
//
//	Continue      advance to the next step
//	Terminate     complete the chain now
//	Reschedule(d) re-arm the timer for d without advancing
//	Jump(i)       move the cursor to step i
//
// Adding a handler means adding a Kind and a case to Invoke; there is no
// runtime registration.
package action
