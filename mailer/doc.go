// Package mailer delivers the plain-text mails of the auth flows.
//
// [SMTPMailer] sends through an SMTP relay with PLAIN auth. [LogMailer]
// writes the mail to a zap logger instead and is meant for local
// development only, since it logs codes and reset links.
package mailer
