package connectors

import "invoicemerge/internal"

// MailConnector fetches raw messages from a mailbox. Implementations exist for
// plain IMAP and for the Gmail REST API.
type MailConnector interface {
	FetchInbox(label string, max int) ([]internal.FetchedMailMessage, error)
}
