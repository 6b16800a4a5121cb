/*
Package submission drives the human response protocol for one interrupted
thread.

A Submitter owns the per-thread in-flight guard; Open returns a Session
holding the editable draft. Session.Submit streams the resumed run
(idle → submitting → streaming → stream_finished | stream_errored),
Session.Ignore resumes with an ignore response and Session.Resolve moves a
thread with unparseable interrupts to the end node. After success the
shared inbox.ThreadList is reconciled: a thread that is interrupted again
is replaced in place, anything else triggers a list refetch.
*/
package submission
