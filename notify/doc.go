// Package notify reports fix-run progress to external channels.
//
// Notifiers receive workflow events (run started, fix rejected,
// verification failed, PR created) and forward them to logs, generic
// webhooks, or Slack. Notification failures never fail a run.
package notify
