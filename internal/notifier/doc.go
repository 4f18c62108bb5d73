// Package notifier delivers rendered notifications to the destination chat.
//
// Delivery is sequential: each notification is sent and awaited before the
// next one starts. Sends are paced by a token bucket so a first-run burst
// stays under the chat platform's flood limits. A failed send is logged and
// counted; it never stops the remaining deliveries.
//
// # History
//
// The service keeps a small in-memory history of recent deliveries for the
// /status command.
package notifier
