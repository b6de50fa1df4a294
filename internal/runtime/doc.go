/*
Package runtime implements the submission state machine as pure transition functions.

Step takes the current State and an Event and returns the next State. It never
performs I/O: when a submission is accepted it returns a Dispatch describing the
exchange the caller must start. The controller in pkg/session owns the only
mutable State and feeds outcomes back through Step.

	Idle --Submitted [trimmed input != ""]--> Sending   (user turn appended, Dispatch returned)
	Sending --AnswerReceived--> Idle                     (assistant turn appended)
	Sending --ExchangeFailed--> Idle                     (LastError set)

Any other combination leaves the State unchanged and reports why.
*/
package runtime
