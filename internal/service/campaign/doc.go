// Package campaign implements the campaign lifecycle: draft, scheduled
// and sent, plus the send operation itself.
//
// Status rules:
//
//   - draft -> scheduled and scheduled -> draft are reversible edits.
//   - draft|scheduled -> sent happens only through Send, which stamps
//     recipients_count and sent_at in the same transition.
//   - sent is terminal. A second Send attempt returns ErrAlreadySent;
//     there is no resend path.
//
// Send delegates delivery to the dispatch package and records the
// outcome; it never retries failed recipients.
package campaign
