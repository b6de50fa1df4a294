/*
Package observability turns session lifecycle hooks into metrics and logs.

Metrics exposes prometheus collectors for submissions, answers, failures and
exchange duration. LoggingHooks reports the same events through slog. Both
return domain.LifecycleHooks, so they compose with domain.ComposeHooks.
*/
package observability
