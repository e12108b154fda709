// Package notify emails session analytics reports and support tickets.
//
// Messages are rendered from html/template and text/template sources,
// composed as multipart/alternative MIME with go-message, and handed to a
// Sender. SMTPSender delivers over SMTP with implicit TLS on port 465 and
// STARTTLS elsewhere.
//
// Delivery failures never panic or leak past the Dispatcher: they come
// back as a DeliveryResult with Delivered=false and a Reason, together
// with an error wrapping ErrDeliveryFailed.
package notify
